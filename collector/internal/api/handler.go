package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glimpsebox/glimpse/collector/internal/alerts"
	"github.com/glimpsebox/glimpse/collector/internal/store"
)

// Handler is the HTTP handler for the read side of /api/v1/*.
// It serves capture state from the store and alert state from the engine;
// uploads are handled separately by the receiver.
type Handler struct {
	store  *store.Store
	alerts *alerts.Engine
	mux    *http.ServeMux
}

// New creates a Handler wired to the given capture store and alert engine
// and registers all routes.
func New(st *store.Store, eng *alerts.Engine) *Handler {
	h := &Handler{store: st, alerts: eng, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/captures", h.listCaptures)
	h.mux.HandleFunc("/api/v1/captures/", h.getCapture) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/subjects", h.subjects)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health, subject and display counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	subjects := make(map[string]struct{}, len(entries))
	for _, c := range entries {
		subjects[c.SubjectKey()] = struct{}{}
	}

	jsonResp(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		SubjectCount: len(subjects),
		DisplayCount: len(entries),
		AlertCount:   len(h.alerts.Active()),
	})
}

// listCaptures returns GET /api/v1/captures, the latest capture of every
// live display, newest first.
func (h *Handler) listCaptures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildCaptureList(h.store))
}

// getCapture serves GET /api/v1/captures/{id} and GET /api/v1/captures/{id}/image.
func (h *Handler) getCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/captures/")
	if rest == "" {
		// Bare /api/v1/captures/ is the list.
		h.listCaptures(w, r)
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	c, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "capture not found")
		return
	}

	switch sub {
	case "":
		jsonResp(w, http.StatusOK, ToSummary(c))
	case "image":
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(c.Image)))
		w.WriteHeader(http.StatusOK)
		w.Write(c.Image) //nolint:errcheck
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// subjects returns GET /api/v1/subjects, one row per onboarded machine.
func (h *Handler) subjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	byKey := make(map[string]*SubjectSummary)
	lastSeen := make(map[string]time.Time)
	for _, c := range h.store.List() {
		key := c.SubjectKey()
		s, ok := byKey[key]
		if !ok {
			s = &SubjectSummary{
				AccountEmail: c.AccountEmail,
				SubjectName:  c.SubjectName,
			}
			byKey[key] = s
		}
		s.DisplayCount++
		if c.ReceivedAt.After(lastSeen[key]) {
			lastSeen[key] = c.ReceivedAt
			s.LastSeen = c.ReceivedAt.UTC().Format(time.RFC3339)
		}
	}

	out := make([]SubjectSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountEmail != out[j].AccountEmail {
			return out[i].AccountEmail < out[j].AccountEmail
		}
		return out[i].SubjectName < out[j].SubjectName
	})
	jsonResp(w, http.StatusOK, out)
}

// listAlerts returns GET /api/v1/alerts, firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// ToSummary maps a stored capture to its JSON representation.
func ToSummary(c *store.Capture) CaptureSummary {
	return CaptureSummary{
		ID:           c.ID,
		AccountEmail: c.AccountEmail,
		SubjectName:  c.SubjectName,
		ScreenNumber: c.ScreenNumber,
		DisplayID:    c.DisplayID,
		ScreenName:   c.ScreenName,
		Width:        c.Width,
		Height:       c.Height,
		SizeBytes:    len(c.Image),
		CapturedAt:   c.CapturedAt.UTC().Format(time.RFC3339),
		ReceivedAt:   c.ReceivedAt.UTC().Format(time.RFC3339),
		ImagePath:    "/api/v1/captures/" + c.ID + "/image",
	}
}

// BuildCaptureList returns summaries of every live display capture,
// newest first. Shared with the WebSocket hub for its connect snapshot.
func BuildCaptureList(st *store.Store) []CaptureSummary {
	entries := st.List()
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ReceivedAt.Equal(entries[j].ReceivedAt) {
			return entries[i].ReceivedAt.After(entries[j].ReceivedAt)
		}
		if entries[i].SubjectName != entries[j].SubjectName {
			return entries[i].SubjectName < entries[j].SubjectName
		}
		return entries[i].ScreenNumber < entries[j].ScreenNumber
	})

	out := make([]CaptureSummary, 0, len(entries))
	for _, c := range entries {
		out = append(out, ToSummary(c))
	}
	return out
}
