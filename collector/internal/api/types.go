package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	SubjectCount int    `json:"subject_count"`
	DisplayCount int    `json:"display_count"`
	AlertCount   int    `json:"alert_count"`
}

// CaptureSummary is one display capture in GET /api/v1/captures or
// GET /api/v1/captures/{id}. The image itself is served separately
// under ImagePath.
type CaptureSummary struct {
	ID           string `json:"id"`
	AccountEmail string `json:"account_email"`
	SubjectName  string `json:"subject_name"`
	ScreenNumber int    `json:"screen_number"`
	DisplayID    string `json:"display_id"`
	ScreenName   string `json:"screen_name,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int    `json:"size_bytes"`
	CapturedAt   string `json:"captured_at"` // RFC3339
	ReceivedAt   string `json:"received_at"` // RFC3339
	ImagePath    string `json:"image_path"`
}

// SubjectSummary is one onboarded machine in GET /api/v1/subjects,
// aggregated across its displays.
type SubjectSummary struct {
	AccountEmail string `json:"account_email"`
	SubjectName  string `json:"subject_name"`
	DisplayCount int    `json:"display_count"`
	LastSeen     string `json:"last_seen"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
