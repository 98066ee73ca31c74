package receiver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/glimpsebox/glimpse/collector/internal/alerts"
	"github.com/glimpsebox/glimpse/collector/internal/api"
	"github.com/glimpsebox/glimpse/collector/internal/store"
	"github.com/glimpsebox/glimpse/collector/internal/ws"
	"github.com/glimpsebox/glimpse/pkg/types"
)

// maxUploadBytes bounds a single capture upload body. Base64 inflates the
// PNG by a third, so this comfortably fits a 4K display capture.
const maxUploadBytes = 32 << 20

// Receiver handles POST /api/v1/captures from glimpse-agent instances.
// It validates each upload, stores it as the display's latest capture,
// feeds the silence tracker, and pushes the capture to WebSocket clients.
// Authentication and rate limiting are enforced by middleware before this
// handler runs.
type Receiver struct {
	store  *store.Store
	alerts *alerts.Engine
	hub    *ws.Hub
}

// New creates a Receiver that writes accepted captures to st.
func New(st *store.Store, eng *alerts.Engine, hub *ws.Hub) *Receiver {
	return &Receiver{store: st, alerts: eng, hub: hub}
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		reject(w, http.StatusMethodNotAllowed, "method not allowed", "method")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var p types.CapturePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			reject(w, http.StatusRequestEntityTooLarge, "body exceeds upload limit", "too_large")
			return
		}
		reject(w, http.StatusBadRequest, "invalid JSON body", "bad_json")
		return
	}
	if p.Image == "" {
		reject(w, http.StatusBadRequest, "image is required", "no_image")
		return
	}
	if p.DisplayID == "" {
		reject(w, http.StatusBadRequest, "displayId is required", "no_display")
		return
	}

	img, err := base64.StdEncoding.DecodeString(p.Image)
	if err != nil {
		reject(w, http.StatusBadRequest, "image is not valid base64", "bad_image")
		return
	}

	c := &store.Capture{
		ID:           uuid.NewString(),
		AccountEmail: p.AccountEmail,
		SubjectName:  p.SubjectName,
		ScreenNumber: p.ScreenNumber,
		DisplayID:    p.DisplayID,
		ScreenName:   p.ScreenName,
		CapturedAt:   p.CapturedAtTime(),
		Width:        p.Metadata.Width,
		Height:       p.Metadata.Height,
		Image:        img,
	}
	if c.Width == 0 || c.Height == 0 {
		// Older agents omit the dimensions; read them from the PNG header.
		if cfg, err := png.DecodeConfig(bytes.NewReader(img)); err == nil {
			c.Width, c.Height = cfg.Width, cfg.Height
		}
	}
	rc.store.Put(c)

	// Unattributed uploads (onboarding not finished) are stored but do not
	// feed silence tracking; a phantom subject would alert forever.
	if p.AccountEmail != "" || p.SubjectName != "" {
		rc.alerts.Observe(p.AccountEmail, p.SubjectName, c.ReceivedAt)
	}
	rc.hub.Notify(api.ToSummary(c))

	capturesReceived.Inc()
	captureBytes.Add(float64(len(img)))

	slog.Debug("receiver: capture stored",
		"id", c.ID,
		"subject", c.SubjectName,
		"display", c.DisplayID,
		"bytes", len(img),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(types.AckResponse{OK: true, ID: c.ID}) //nolint:errcheck
}

func reject(w http.ResponseWriter, code int, msg, reason string) {
	capturesRejected.WithLabelValues(reason).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
