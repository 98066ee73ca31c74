// Package identity reads the persisted onboarding record that names the
// account and subject every upload is attributed to. The record is owned by
// the desktop shell's onboarding flow; the pipeline only reads it.
package identity

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Record holds the identity fields attached to every upload task.
type Record struct {
	AccountEmail string `json:"accountEmail"`
	SubjectName  string `json:"subjectName"`
}

// Source yields the identity record current at the time of the call.
type Source interface {
	Identity() Record
}

// File reads the record from a JSON profile file on every call, so a
// re-onboarding takes effect on the next capture tick. A missing or
// malformed file yields an empty Record and uploads proceed unattributed.
type File struct {
	Path string
}

// Identity implements Source.
func (f File) Identity() Record {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		// Normal before onboarding has run.
		return Record{}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("identity: malformed profile, uploading unattributed",
			"path", f.Path, "err", err)
		return Record{}
	}
	return rec
}

// Static is a fixed-value Source for tests and embedding callers.
type Static Record

// Identity implements Source.
func (s Static) Identity() Record { return Record(s) }
