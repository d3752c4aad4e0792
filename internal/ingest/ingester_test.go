package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"google.golang.org/api/googleapi"

	"docflow/internal/ingest"
	"docflow/internal/mail"
	mail_mocks "docflow/internal/mail/mocks"
	"docflow/internal/storage"
	storage_mocks "docflow/internal/storage/mocks"
	"docflow/internal/workspace"
)

type fixture struct {
	store  *storage.LedgerRepo
	layout workspace.Layout
	client *mail_mocks.MockClient
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()
	root := t.TempDir()

	db, err := storage.New(filepath.Join(root, "ledger.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return &fixture{
		store: storage.NewLedgerRepo(db),
		layout: workspace.Layout{
			Root:     root,
			Download: filepath.Join(root, "download"),
			Images:   filepath.Join(root, "images"),
			Output:   filepath.Join(root, "output"),
			Results:  filepath.Join(root, "results"),
		},
		client: mail_mocks.NewMockClient(ctrl),
	}
}

func (f *fixture) ingester() *ingest.Ingester {
	return ingest.NewIngester(f.client, f.store, f.layout, ingest.Options{
		Lookback:      24 * time.Hour,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
}

func (f *fixture) downloads(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.layout.Download)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func message(id, thread, subject string, parts ...mail.Part) *mail.Message {
	return &mail.Message{
		ID:       id,
		ThreadID: thread,
		Headers: map[string]string{
			"Subject": subject,
			"From":    "buyer@example.com",
			"Date":    "Mon, 3 Mar 2025 10:00:00 +0000",
		},
		Parts: parts,
	}
}

// expectMailbox makes the mock serve the given messages for every run.
func (f *fixture) expectMailbox(msgs ...*mail.Message) {
	var list []mail.MessageSummary
	for _, m := range msgs {
		list = append(list, mail.MessageSummary{ID: m.ID, ThreadID: m.ThreadID})
		f.client.EXPECT().GetMessage(gomock.Any(), m.ID).Return(m, nil).AnyTimes()
	}
	f.client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, query string) ([]mail.MessageSummary, error) {
			if !strings.HasPrefix(query, "has:attachment after:") {
				return nil, errors.New("unexpected query " + query)
			}
			return list, nil
		}).AnyTimes()
}

func TestIngester_RunIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.expectMailbox(
		message("m1", "t1", "Quote",
			mail.Part{Filename: "quote.pdf", Data: []byte("quote v1")},
			mail.Part{Filename: "photo.jpg", Data: []byte("jpeg")},
		),
		message("m2", "t2", "Specs", mail.Part{Filename: "specs.docx", AttachmentID: "a1"}),
	)
	f.client.EXPECT().GetAttachment(gomock.Any(), "m2", "a1").Return([]byte("docx"), nil).AnyTimes()

	ctx := context.Background()
	first, err := f.ingester().Run(ctx)
	if err != nil {
		t.Fatalf("Run() first error = %v", err)
	}
	if len(first.Downloaded) != 2 {
		t.Fatalf("first run downloaded = %v, want 2 files", first.Downloaded)
	}
	if got := f.downloads(t); len(got) != 2 {
		t.Fatalf("files on disk = %v", got)
	}

	second, err := f.ingester().Run(ctx)
	if err != nil {
		t.Fatalf("Run() second error = %v", err)
	}
	if len(second.Downloaded) != 0 {
		t.Errorf("second run downloaded = %v, want none", second.Downloaded)
	}
	if len(second.Skipped) != 2 {
		t.Errorf("second run skipped = %v, want 2", second.Skipped)
	}
	if got := f.downloads(t); len(got) != 2 {
		t.Errorf("files on disk after rerun = %v, want 2", got)
	}

	table, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("ledger rows = %d, want 2", table.Len())
	}
	row := table.Rows[0]
	if row.ProcessStatus != storage.StatusDownloaded || row.DuplicateStatus != storage.DuplicateUnique {
		t.Errorf("row status = %q/%q", row.ProcessStatus, row.DuplicateStatus)
	}
	if row.Markdown != "" || row.JSON != "" {
		t.Errorf("stage flags should start empty: %+v", row)
	}
	if row.SourceKey != "quote" || row.CountDownload != 1 {
		t.Errorf("row = %+v", row)
	}
	if !strings.HasPrefix(row.UniqueFileIDs, "quote.pdf_m1_") {
		t.Errorf("unique_file_ids = %q", row.UniqueFileIDs)
	}
}

func TestIngester_CollisionSafeNaming(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.expectMailbox(
		message("m1", "t1", "Report A", mail.Part{Filename: "report.pdf", Data: []byte("report A")}),
		message("m2", "t2", "Report B", mail.Part{Filename: "report.pdf", Data: []byte("report B")}),
	)

	summary, err := f.ingester().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Downloaded) != 2 {
		t.Fatalf("downloaded = %v", summary.Downloaded)
	}

	want := []string{"report.pdf", "report_1.pdf"}
	got := f.downloads(t)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("files on disk = %v, want %v", got, want)
	}

	table, _ := f.store.Load(context.Background())
	second := table.Rows[1]
	if second.AttachmentNames != "report_1.pdf" || second.OriginalFilenames != "report.pdf" {
		t.Errorf("second row names = %q/%q", second.AttachmentNames, second.OriginalFilenames)
	}
	if second.SourceKey != "report_1" {
		t.Errorf("second row source key = %q", second.SourceKey)
	}
	if table.Rows[0].FileHashes == second.FileHashes {
		t.Error("rows should carry distinct content hashes")
	}
}

func TestIngester_KeysUniqueAcrossExtensions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.expectMailbox(
		message("m1", "t1", "Plan", mail.Part{Filename: "report.pdf", Data: []byte("pdf bytes")}),
		message("m2", "t2", "Plan notes", mail.Part{Filename: "report.docx", Data: []byte("docx bytes")}),
	)

	if _, err := f.ingester().Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"report.pdf", "report_1.docx"}
	got := f.downloads(t)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("files on disk = %v, want %v", got, want)
	}

	table, _ := f.store.Load(context.Background())
	if table.Rows[0].SourceKey == table.Rows[1].SourceKey {
		t.Errorf("rows share source key %q", table.Rows[0].SourceKey)
	}
}

func TestIngester_CancelledRunRecordsWrittenFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).
		Return([]mail.MessageSummary{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}, nil)
	f.client.EXPECT().GetMessage(gomock.Any(), "m1").
		Return(message("m1", "t1", "Report", mail.Part{Filename: "report.pdf", Data: []byte("report")}), nil)
	f.client.EXPECT().GetMessage(gomock.Any(), "m2").
		DoAndReturn(func(ctx context.Context, id string) (*mail.Message, error) {
			cancel()
			return nil, ctx.Err()
		})

	summary, err := f.ingester().Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if summary == nil || len(summary.Downloaded) != 1 || summary.Unrecorded {
		t.Fatalf("summary = %+v, want one recorded download", summary)
	}

	table, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if table.Len() != 1 || table.Rows[0].AttachmentNames != "report.pdf" {
		t.Fatalf("ledger rows = %+v, want the row for report.pdf", table.Rows)
	}
	if got := f.downloads(t); len(got) != 1 || got[0] != "report.pdf" {
		t.Errorf("files on disk = %v", got)
	}

	// A rerun sees the row and does not write the file again.
	f.expectMailbox(message("m1", "t1", "Report", mail.Part{Filename: "report.pdf", Data: []byte("report")}))
	if _, err := f.ingester().Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := f.downloads(t); len(got) != 1 {
		t.Errorf("files on disk after rerun = %v, want only report.pdf", got)
	}
}

func TestIngester_Duplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.expectMailbox(
		message("m1", "t1", "Quote", mail.Part{Filename: "quote.pdf", Data: []byte("v1")}),
		message("m2", "t1", "Re: Quote", mail.Part{Filename: "quote.pdf", Data: []byte("v2")}),
		message("m3", "t3", "Fwd", mail.Part{Filename: "copy.pdf", Data: []byte("v1")}),
	)

	summary, err := f.ingester().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Downloaded) != 1 {
		t.Fatalf("downloaded = %v, want only the first quote", summary.Downloaded)
	}
	if len(summary.Skipped) != 2 {
		t.Fatalf("skipped = %+v", summary.Skipped)
	}
	if !strings.Contains(summary.Skipped[0].Reason, "same filename already downloaded in this email thread") {
		t.Errorf("thread duplicate reason = %q", summary.Skipped[0].Reason)
	}
	if !strings.Contains(summary.Skipped[1].Reason, "identical file content already exists") {
		t.Errorf("content duplicate reason = %q", summary.Skipped[1].Reason)
	}
}

func TestIngester_InheritsFirstInboxMsg(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	first := message("m1", "t1", "Quote", mail.Part{Filename: "a.pdf", Data: []byte("a")})
	reply := message("m2", "t1", "Re: Quote", mail.Part{Filename: "b.pdf", Data: []byte("b")})
	reply.Headers["Date"] = "Tue, 4 Mar 2025 10:00:00 +0000"
	f.expectMailbox(first, reply)

	if _, err := f.ingester().Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	table, _ := f.store.Load(context.Background())
	for _, r := range table.Rows {
		if r.FirstInboxMsg != "Mon, 3 Mar 2025 10:00:00 +0000" {
			t.Errorf("row %s first_inbox_msg = %q", r.EmailID, r.FirstInboxMsg)
		}
	}
}

func TestIngester_FailureIsolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return([]mail.MessageSummary{
		{ID: "broken"}, {ID: "m1"},
	}, nil)
	f.client.EXPECT().GetMessage(gomock.Any(), "broken").Return(nil, &googleapi.Error{Code: 404})
	f.client.EXPECT().GetMessage(gomock.Any(), "m1").Return(message("m1", "t1", "Docs",
		mail.Part{Filename: "bad.pdf", AttachmentID: "gone"},
		mail.Part{Filename: "good.pdf", AttachmentID: "ok"},
	), nil)
	gomock.InOrder(
		f.client.EXPECT().GetAttachment(gomock.Any(), "m1", "gone").Return(nil, &googleapi.Error{Code: 503}),
		f.client.EXPECT().GetAttachment(gomock.Any(), "m1", "gone").Return(nil, &googleapi.Error{Code: 503}),
	)
	f.client.EXPECT().GetAttachment(gomock.Any(), "m1", "ok").Return([]byte("good"), nil)

	summary, err := f.ingester().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Downloaded) != 1 || summary.Downloaded[0] != "good.pdf" {
		t.Errorf("downloaded = %v", summary.Downloaded)
	}
	if len(summary.Failed) != 2 {
		t.Fatalf("failed = %+v, want message and attachment failures", summary.Failed)
	}
	if !strings.Contains(summary.String(), "Failed 2") {
		t.Errorf("summary text = %q", summary.String())
	}
}

func TestIngester_RetriesTransientList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	gomock.InOrder(
		f.client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return(nil, &googleapi.Error{Code: 429}),
		f.client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return(nil, nil),
	)

	summary, err := f.ingester().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasPrefix(summary.String(), "No new emails with attachments") {
		t.Errorf("summary = %q", summary.String())
	}
}

func TestIngester_LedgerUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storage_mocks.NewMockLedgerStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(nil, storage.ErrLedgerUnavailable)
	client := mail_mocks.NewMockClient(ctrl)

	g := ingest.NewIngester(client, store, workspace.Layout{Root: t.TempDir()}, ingest.Options{})
	if _, err := g.Run(context.Background()); !errors.Is(err, storage.ErrLedgerUnavailable) {
		t.Errorf("Run() error = %v, want ErrLedgerUnavailable", err)
	}
}

func TestIngester_SaveConflictMergesRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	root := t.TempDir()
	layout := workspace.Layout{Root: root, Download: filepath.Join(root, "download")}

	other := storage.LedgerRow{ID: "other", AttachmentNames: "other.pdf", UniqueFileIDs: "other_m0_abc"}
	var saved *storage.Table

	store := storage_mocks.NewMockLedgerStore(ctrl)
	gomock.InOrder(
		store.EXPECT().Load(gomock.Any()).Return(storage.NewTable(), nil),
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(storage.ErrVersionConflict),
		store.EXPECT().Load(gomock.Any()).DoAndReturn(func(ctx context.Context) (*storage.Table, error) {
			fresh := storage.NewTable()
			fresh.Append(other)
			fresh.Version = 1
			return fresh, nil
		}),
		store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, tbl *storage.Table) error {
			saved = tbl
			return nil
		}),
	)

	client := mail_mocks.NewMockClient(ctrl)
	client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return([]mail.MessageSummary{{ID: "m1"}}, nil)
	client.EXPECT().GetMessage(gomock.Any(), "m1").Return(message("m1", "t1", "S", mail.Part{Filename: "x.pdf", Data: []byte("x")}), nil)

	summary, err := ingest.NewIngester(client, store, layout, ingest.Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Unrecorded {
		t.Error("rows should be recorded after the merge")
	}
	if saved == nil || saved.Len() != 2 || saved.Version != 1 {
		t.Fatalf("saved table = %+v, want the other writer's row plus ours at version 1", saved)
	}
	if saved.Rows[0].ID != "other" || saved.Rows[1].AttachmentNames != "x.pdf" {
		t.Errorf("saved rows = %q, %q", saved.Rows[0].AttachmentNames, saved.Rows[1].AttachmentNames)
	}
}

func TestIngester_SaveConflictReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	root := t.TempDir()
	layout := workspace.Layout{Root: root, Download: filepath.Join(root, "download")}

	store := storage_mocks.NewMockLedgerStore(ctrl)
	store.EXPECT().Load(gomock.Any()).DoAndReturn(func(ctx context.Context) (*storage.Table, error) {
		return storage.NewTable(), nil
	}).Times(4)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(storage.ErrVersionConflict).Times(3)

	client := mail_mocks.NewMockClient(ctrl)
	client.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return([]mail.MessageSummary{{ID: "m1"}}, nil)
	client.EXPECT().GetMessage(gomock.Any(), "m1").Return(message("m1", "t1", "S", mail.Part{Filename: "x.pdf", Data: []byte("x")}), nil)

	summary, err := ingest.NewIngester(client, store, layout, ingest.Options{}).Run(context.Background())
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("Run() error = %v, want ErrVersionConflict", err)
	}
	if summary == nil || !summary.Unrecorded {
		t.Errorf("summary should flag unrecorded downloads: %+v", summary)
	}
}
