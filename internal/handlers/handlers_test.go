package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"docflow/internal/convert"
	"docflow/internal/extract"
	"docflow/internal/ingest"
	"docflow/internal/maintenance"
	"docflow/internal/pipeline"
	"docflow/internal/service/mocks"
	"docflow/internal/storage"
	storagemocks "docflow/internal/storage/mocks"
)

func passRouter(h *PassHandler) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/api/{pass}", h)
	r.Method(http.MethodGet, "/api/{pass}", h)
	return r
}

func TestPassHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		pass        string
		mockSetup   func(*mocks.MockPipelineService)
		wantStatus  int
		wantSummary string
	}{
		{
			name:   "ingest",
			method: http.MethodPost,
			pass:   "ingest",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Ingest(gomock.Any()).Return(&ingest.Summary{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "convert",
			method: http.MethodPost,
			pass:   "convert",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Convert(gomock.Any()).Return(&convert.Summary{}, nil)
			},
			wantStatus:  http.StatusOK,
			wantSummary: "No PDF files found in the download directory.",
		},
		{
			name:   "extract",
			method: http.MethodPost,
			pass:   "extract",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Extract(gomock.Any()).Return(&extract.Summary{}, nil)
			},
			wantStatus:  http.StatusOK,
			wantSummary: "No markdown documents found in the output directory.",
		},
		{
			name:   "run all",
			method: http.MethodPost,
			pass:   "run",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().RunAll(gomock.Any()).Return(&pipeline.Result{
					Ingest:  &ingest.Summary{},
					Convert: &convert.Summary{},
					Extract: &extract.Summary{},
				}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown pass",
			method:     http.MethodPost,
			pass:       "compile",
			mockSetup:  func(m *mocks.MockPipelineService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "busy",
			method: http.MethodPost,
			pass:   "convert",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Convert(gomock.Any()).Return(nil, pipeline.ErrBusy)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "ledger unavailable",
			method: http.MethodPost,
			pass:   "ingest",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Ingest(gomock.Any()).Return(nil, fmt.Errorf("load: %w", storage.ErrLedgerUnavailable))
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:   "unexpected error",
			method: http.MethodPost,
			pass:   "extract",
			mockSetup: func(m *mocks.MockPipelineService) {
				m.EXPECT().Extract(gomock.Any()).Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "GET not allowed",
			method:     http.MethodGet,
			pass:       "ingest",
			mockSetup:  func(m *mocks.MockPipelineService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockPipelineService(ctrl)
			tt.mockSetup(svc)

			req := httptest.NewRequest(tt.method, "/api/"+tt.pass, nil)
			w := httptest.NewRecorder()
			passRouter(NewPassHandler(svc)).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
					t.Errorf("error body = %q, want an ErrorResponse", w.Body.String())
				}
				return
			}

			var resp PassResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Pass != tt.pass {
				t.Errorf("pass = %q, want %q", resp.Pass, tt.pass)
			}
			if resp.Summary == "" {
				t.Error("summary should not be empty")
			}
			if tt.wantSummary != "" && resp.Summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", resp.Summary, tt.wantSummary)
			}
		})
	}
}

func TestLedgerHandler_Report(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockLedgerReporter(ctrl)
	reporter.EXPECT().Report(gomock.Any()).Return(&maintenance.Report{
		Location:     "ledger.db",
		TotalFiles:   2,
		UniqueEmails: 1,
		FileTypes:    map[string]int{".pdf": 2},
	}, nil)

	h := NewLedgerHandler(reporter, mocks.NewMockPipelineService(ctrl))
	w := httptest.NewRecorder()
	h.Report(w, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp ReportResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Report == nil || resp.Report.TotalFiles != 2 {
		t.Errorf("report = %+v, want 2 files", resp.Report)
	}
	if !strings.Contains(resp.Summary, "ledger.db") {
		t.Errorf("summary = %q, want the ledger location", resp.Summary)
	}
}

func TestLedgerHandler_ReportUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockLedgerReporter(ctrl)
	reporter.EXPECT().Report(gomock.Any()).Return(nil, storage.ErrLedgerUnavailable)

	h := NewLedgerHandler(reporter, mocks.NewMockPipelineService(ctrl))
	w := httptest.NewRecorder()
	h.Report(w, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestLedgerHandler_Dedupe(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "removed duplicates", wantStatus: http.StatusOK},
		{name: "busy", err: pipeline.ErrBusy, wantStatus: http.StatusConflict},
		{name: "version conflict", err: storage.ErrVersionConflict, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockPipelineService(ctrl)
			if tt.err != nil {
				svc.EXPECT().Dedupe(gomock.Any()).Return(0, 0, tt.err)
			} else {
				svc.EXPECT().Dedupe(gomock.Any()).Return(3, 6, nil)
			}

			h := NewLedgerHandler(mocks.NewMockLedgerReporter(ctrl), svc)
			w := httptest.NewRecorder()
			h.Dedupe(w, httptest.NewRequest(http.MethodPost, "/api/ledger/dedupe", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.err != nil {
				return
			}
			var resp DedupeResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Removed != 3 || resp.Remaining != 6 {
				t.Errorf("response = %+v, want 3 removed, 6 remaining", resp)
			}
		})
	}
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		loadErr         error
		wantStatus      int
		wantStatusField string
	}{
		{name: "healthy", method: http.MethodGet, wantStatus: http.StatusOK, wantStatusField: "healthy"},
		{name: "ledger down", method: http.MethodGet, loadErr: storage.ErrLedgerUnavailable, wantStatus: http.StatusServiceUnavailable, wantStatusField: "unhealthy"},
		{name: "POST not allowed", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := storagemocks.NewMockLedgerStore(ctrl)
			if tt.method == http.MethodGet {
				store.EXPECT().Load(gomock.Any()).Return(storage.NewTable(), tt.loadErr)
			}

			w := httptest.NewRecorder()
			NewHealthHandler(store).ServeHTTP(w, httptest.NewRequest(tt.method, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatusField == "" {
				return
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantStatusField {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantStatusField)
			}
		})
	}
}
