// Package fingerprint computes the identity hashes the ledger uses to group
// messages and detect repeated files.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// CompositePrefixLen is the number of content-hash hex characters kept in a composite file id.
const CompositePrefixLen = 16

// Message returns a stable digest of a logical email. MD5 is enough here:
// the value groups messages and is never used for security decisions.
func Message(messageID, threadID, subject string) string {
	sum := md5.Sum([]byte(messageID + "_" + threadID + "_" + subject))
	return hex.EncodeToString(sum[:])
}

// Content returns the SHA-256 hex digest of raw file bytes.
func Content(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CompositeFileID combines the stored filename, the owning message and a
// content-hash prefix into a single key: filename_emailID_prefix.
func CompositeFileID(filename, contentHash, emailID string) string {
	prefix := contentHash
	if len(prefix) > CompositePrefixLen {
		prefix = prefix[:CompositePrefixLen]
	}
	return filename + "_" + emailID + "_" + prefix
}
