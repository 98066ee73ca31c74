package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/glimpsebox/glimpse/collector/internal/config"
)

const (
	defaultAfter    = 5 * time.Minute
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
	sweepInterval   = 30 * time.Second
)

// Alert represents a single silence event produced by the rule engine.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	AccountEmail string     `json:"account_email"`
	SubjectName  string     `json:"subject_name"`
	Severity     string     `json:"severity"`
	Message      string     `json:"message"`
	SilentFor    float64    `json:"silent_for_seconds"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"` // "firing" | "resolved"
}

// subject tracks the last time one onboarded machine delivered a capture.
type subject struct {
	accountEmail string
	subjectName  string
	lastSeen     time.Time
}

// Engine fires alerts for subjects that stop delivering captures and
// resolves them when delivery resumes. While a subject stays silent the
// alert re-fires once per cooldown so notifications keep coming.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.SilenceRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	subjects map[string]*subject  // key: accountEmail|subjectName
	active   map[string]*Alert    // key: "ruleName:subjectKey"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
}

// New creates an Engine from the collector alert configuration.
// An Engine with empty rules is valid; Sweep becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		subjects: make(map[string]*subject),
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Observe records a delivered capture for the subject and resolves any
// firing silence alert for it. Called by the receiver on every accepted
// upload.
func (e *Engine) Observe(accountEmail, subjectName string, at time.Time) {
	key := accountEmail + "|" + subjectName

	e.mu.Lock()
	e.subjects[key] = &subject{
		accountEmail: accountEmail,
		subjectName:  subjectName,
		lastSeen:     at,
	}

	var resolved []*Alert
	for _, rule := range e.rules {
		akey := rule.Name + ":" + key
		a, ok := e.active[akey]
		if !ok || a.State != "firing" {
			continue
		}
		ts := at
		a.State = "resolved"
		a.ResolvedAt = &ts
		delete(e.active, akey)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		cp := *a
		resolved = append(resolved, &cp)
	}
	e.mu.Unlock()

	for _, cp := range resolved {
		slog.Info("alert resolved",
			"rule", cp.RuleName,
			"subject", cp.SubjectName,
		)
		go e.deliver(cp)
	}
}

// Sweep tests every known subject against every silence rule. Alerts that
// fire are stored and webhook delivery is triggered asynchronously.
func (e *Engine) Sweep(now time.Time) {
	if len(e.rules) == 0 {
		return
	}

	e.mu.Lock()
	var fired []*Alert
	for key, sub := range e.subjects {
		silent := now.Sub(sub.lastSeen)
		for _, rule := range e.rules {
			after := rule.After
			if after <= 0 {
				after = defaultAfter
			}
			if silent <= after {
				continue
			}

			akey := rule.Name + ":" + key
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[akey]) <= cooldown {
				continue
			}

			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:           fmt.Sprintf("%s:%s:%d", rule.Name, key, now.UnixNano()),
				RuleName:     rule.Name,
				AccountEmail: sub.accountEmail,
				SubjectName:  sub.subjectName,
				Severity:     sev,
				SilentFor:    silent.Seconds(),
				Message: fmt.Sprintf("[%s] %s: no captures from %q for %s",
					sev, rule.Name, sub.subjectName, silent.Round(time.Second)),
				FiredAt: now,
				State:   "firing",
			}
			e.active[akey] = a
			e.lastFire[akey] = now
			cp := *a
			fired = append(fired, &cp)
		}
	}
	e.mu.Unlock()

	for _, cp := range fired {
		slog.Warn("alert fired",
			"rule", cp.RuleName,
			"subject", cp.SubjectName,
			"silent_for", time.Duration(cp.SilentFor*float64(time.Second)),
			"severity", cp.Severity,
		)
		go e.deliver(cp)
	}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Sweep(e.now())
		}
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}
