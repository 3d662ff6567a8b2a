package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShareToken derives the public share token from a report ID: the first 16
// hex characters of its SHA-256. Opaque, stable, and not reversible to the ID.
func ShareToken(reportID string) string {
	sum := sha256.Sum256([]byte(reportID))
	return hex.EncodeToString(sum[:])[:16]
}

// SnapshotKey returns a filesystem-safe object key for a report's raw page snapshot.
func SnapshotKey(reportID, kind string) string {
	return "snapshots/" + reportID + "/" + kind
}
