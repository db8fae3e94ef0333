// Package fileid derives a deterministic document ID from a file path, used
// for files ingested from watched drop directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// FileDocID returns a stable document ID for the given absolute path. The
// same path always yields the same ID, so a re-dropped file replaces its
// earlier version and a removed file can be deleted by path.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
