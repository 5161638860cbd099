// Package deeplink routes app-scheme and web deep links to in-app actions.
// Links arrive from the OS (protocol handler), from the mobile wrapper's
// deep-link plugin, or from another window.
package deeplink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
)

// AppScheme is the protocol the OS registers for the client.
const AppScheme = "msn"

var (
	// ErrSchemeNotAllowed rejects links on schemes the client never opens.
	ErrSchemeNotAllowed = errors.New("deeplink: scheme not allowed")
	// ErrBadPattern rejects route registration with an invalid glob.
	ErrBadPattern = errors.New("deeplink: invalid route pattern")
)

// Link is a parsed, scheme-validated deep link handed to route handlers.
type Link struct {
	URL *url.URL
	// Path is the scheme-independent route path, e.g. "chat/42" for both
	// msn://chat/42 and https://msn.example/chat/42.
	Path string
}

// Handler acts on a matched link.
type Handler func(ctx context.Context, link Link)

type route struct {
	pattern string
	handler Handler
}

// Router matches deep-link paths against glob patterns, first match wins.
type Router struct {
	log *logging.Logger

	mu     sync.RWMutex
	routes []route
}

// NewRouter creates an empty router.
func NewRouter(log *logging.Logger) *Router {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Router{log: log.Component("deeplink")}
}

// Handle registers a glob pattern (e.g. "chat/*", "contact/*/profile").
// Registration order is match order.
func (r *Router) Handle(pattern string, fn Handler) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	r.mu.Lock()
	r.routes = append(r.routes, route{pattern: pattern, handler: fn})
	r.mu.Unlock()
	return nil
}

// Route parses and dispatches a raw link. Returns whether a handler matched.
// Disallowed schemes return ErrSchemeNotAllowed without dispatching.
func (r *Router) Route(ctx context.Context, raw string) (bool, error) {
	link, err := Parse(raw)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	routes := make([]route, len(r.routes))
	copy(routes, r.routes)
	r.mu.RUnlock()

	for _, rt := range routes {
		ok, err := doublestar.Match(rt.pattern, link.Path)
		if err != nil {
			continue
		}
		if ok {
			r.log.Debug("deep link matched",
				zap.String("pattern", rt.pattern), zap.String("path", link.Path))
			rt.handler(ctx, link)
			return true, nil
		}
	}
	r.log.Debug("deep link unmatched", zap.String("path", link.Path))
	return false, nil
}

// Parse validates the scheme and derives the route path. App-scheme links
// keep their host as the first path segment (msn://chat/42 -> "chat/42").
func Parse(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("deeplink: %w", err)
	}

	var path string
	switch u.Scheme {
	case AppScheme:
		path = u.Host + u.Path
	case "http", "https":
		path = strings.TrimPrefix(u.Path, "/")
	default:
		return Link{}, fmt.Errorf("%w: %q", ErrSchemeNotAllowed, u.Scheme)
	}
	return Link{URL: u, Path: strings.Trim(path, "/")}, nil
}

// ValidateExternalURL gates URLs handed to the OS browser. Only web URLs are
// ever opened externally; anything else (file, javascript, custom schemes)
// is rejected.
func ValidateExternalURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("deeplink: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrSchemeNotAllowed, u.Scheme)
	}
	return nil
}

// ChatWindowURL builds the URL a dedicated chat window loads: the app root
// with the conversation and window-mode parameters set.
func ChatWindowURL(base *url.URL, chatID string) string {
	u := *base
	u.Path = "/"
	q := url.Values{}
	q.Set("chat", chatID)
	q.Set("window", "chat")
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
