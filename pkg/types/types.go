// Package types defines the wire types shared by the agent and the collector.
// CapturePayload is the JSON body of every capture upload; both the agent's
// uploader and the collector's receiver marshal/unmarshal exactly these
// structs, so the two sides cannot drift apart.
package types

import "time"

// CapturePayload is one uploaded display capture.
// Field names are part of the collector wire contract; do not rename.
type CapturePayload struct {
	// AccountEmail and SubjectName identify who the capture belongs to.
	// Both may be empty when the machine has not completed onboarding.
	AccountEmail string `json:"accountEmail"`
	SubjectName  string `json:"subjectName"`

	// ScreenNumber is the 1-based ordinal of the display at capture time.
	ScreenNumber int `json:"screenNumber"`

	// DisplayID is the opaque platform identifier of the display.
	DisplayID string `json:"displayId"`

	// ScreenName is the human-readable display name ("Screen 1", ...).
	ScreenName string `json:"screenName"`

	// Timestamp is the capture instant in Unix epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Image is the PNG capture, base64 (standard encoding).
	Image string `json:"image"`

	Metadata CaptureMetadata `json:"metadata"`
}

// CaptureMetadata carries the image dimensions and a human-readable timestamp.
type CaptureMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// CapturedAt is the same instant as Timestamp, formatted RFC 3339 UTC.
	CapturedAt string `json:"capturedAt"`
}

// CapturedAtTime parses the metadata timestamp, falling back to the epoch-ms
// Timestamp field when the string form is absent or malformed.
func (p *CapturePayload) CapturedAtTime() time.Time {
	if t, err := time.Parse(time.RFC3339, p.Metadata.CapturedAt); err == nil {
		return t
	}
	return time.UnixMilli(p.Timestamp).UTC()
}

// AckResponse is the collector's reply to an accepted capture upload.
type AckResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}
