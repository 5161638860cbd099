// Package notify decides whether and how an incoming event becomes a system
// notification, and routes notification clicks back into the app.
package notify

import (
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Kind tags what an incoming notification is about.
type Kind string

const (
	KindMessage        Kind = "message"
	KindContactRequest Kind = "contact_request"
	KindGroupInvite    Kind = "group_invite"
)

// Settings is the user's notification policy. Quiet hours are local
// clock-time strings ("22:00"); a window may wrap midnight.
type Settings struct {
	Enabled             bool   `json:"enabled"`
	SoundEnabled        bool   `json:"sound_enabled"`
	ShowPreview         bool   `json:"show_preview"`
	SuppressWhenFocused bool   `json:"suppress_when_focused"`
	QuietHoursEnabled   bool   `json:"quiet_hours_enabled"`
	QuietHoursStart     string `json:"quiet_hours_start"`
	QuietHoursEnd       string `json:"quiet_hours_end"`
}

// DefaultSettings matches a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             true,
		SoundEnabled:        true,
		ShowPreview:         true,
		SuppressWhenFocused: true,
		QuietHoursStart:     "22:00",
		QuietHoursEnd:       "08:00",
	}
}

// Notification is one candidate system notification.
type Notification struct {
	ID       string
	Kind     Kind
	Title    string
	Body     string
	ChatID   string
	SenderID string
}

// Decision is the evaluated outcome: deliver or drop (with the reason), the
// possibly-rewritten notification, and whether to play a sound.
type Decision struct {
	Deliver      bool
	Reason       string
	Sound        bool
	Notification Notification
}

// Config wires a Router.
type Config struct {
	Settings Settings
	// Focused reports whether the app window currently has focus.
	Focused func() bool
	// RatePerSecond and Burst bound notification delivery; zero selects
	// one per second with a burst of three.
	RatePerSecond float64
	Burst         int
	Logger        *logging.Logger
}

// Router evaluates notifications against the active settings.
type Router struct {
	log       *logging.Logger
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	focused   func() bool
	clock     func() time.Time

	mu       sync.RWMutex
	settings Settings
}

// NewRouter creates a router.
func NewRouter(cfg Config) *Router {
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 3
	}
	focused := cfg.Focused
	if focused == nil {
		focused = func() bool { return false }
	}
	return &Router{
		log:       log.Component("notify"),
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		sanitizer: bluemonday.StrictPolicy(),
		focused:   focused,
		clock:     time.Now,
		settings:  cfg.Settings,
	}
}

// Settings returns the active settings.
func (r *Router) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// UpdateSettings swaps the active settings.
func (r *Router) UpdateSettings(s Settings) {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
}

// Evaluate applies the policy to one notification. Message bodies are either
// replaced by a generic line (preview off) or sanitized to plain text
// (preview on) so markup from a message never reaches the OS notification.
func (r *Router) Evaluate(n Notification) Decision {
	s := r.Settings()

	switch {
	case !s.Enabled:
		return Decision{Reason: "disabled", Notification: n}
	case s.SuppressWhenFocused && r.focused():
		return Decision{Reason: "window focused", Notification: n}
	case s.QuietHoursEnabled && inQuietHours(r.clock(), s.QuietHoursStart, s.QuietHoursEnd):
		return Decision{Reason: "quiet hours", Notification: n}
	case !r.limiter.Allow():
		r.log.Debug("notification rate limited", zap.String("id", n.ID))
		return Decision{Reason: "rate limited", Notification: n}
	}

	if n.Kind == KindMessage {
		if s.ShowPreview {
			n.Body = strings.TrimSpace(html.UnescapeString(r.sanitizer.Sanitize(n.Body)))
		} else {
			n.Body = "New message"
		}
	}
	return Decision{Deliver: true, Sound: s.SoundEnabled, Notification: n}
}

// Actions are the app-side effects a notification click can trigger.
type Actions struct {
	OpenChat func(chatID string)
	Stack    *overlay.Stack
}

// Click routes a notification click: messages focus their conversation,
// contact requests and group invites open the corresponding overlay.
func (r *Router) Click(n Notification, a Actions) {
	switch n.Kind {
	case KindMessage:
		if a.OpenChat != nil && n.ChatID != "" {
			a.OpenChat(n.ChatID)
		}
	case KindContactRequest:
		if a.Stack != nil {
			a.Stack.Open(overlay.OpenRequest{Type: types.OverlayContactRequests, PersistInURL: true})
		}
	case KindGroupInvite:
		if a.Stack != nil {
			a.Stack.Open(overlay.OpenRequest{Type: types.OverlayGroupInvites, PersistInURL: true})
		}
	default:
		r.log.Debug("unroutable notification click", zap.String("kind", string(n.Kind)))
	}
}

// inQuietHours reports whether now's clock time falls in [start, end),
// wrapping midnight when start > end. Unparseable bounds disable the window.
func inQuietHours(now time.Time, start, end string) bool {
	startMin, ok1 := parseClock(start)
	endMin, ok2 := parseClock(end)
	if !ok1 || !ok2 || startMin == endMin {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()

	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
