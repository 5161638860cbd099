package urlsync

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

type fakeNav struct {
	mu       sync.Mutex
	current  *url.URL
	replaces int
}

func newFakeNav(raw string) *fakeNav {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return &fakeNav{current: u}
}

func (f *fakeNav) Current() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.current
	return &copied
}

func (f *fakeNav) Replace(u *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *u
	f.current = &copied
	f.replaces++
	return nil
}

func (f *fakeNav) set(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	f.current = u
}

func (f *fakeNav) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaces
}

// A debounce of an hour makes timers fire only through Flush, so tests run
// the engine deterministically.
func newTestEngine(nav *fakeNav, strategy ConflictStrategy) (*Engine, *overlay.Stack) {
	stack := overlay.NewStack()
	e := NewEngine(EngineConfig{
		Stack:     stack,
		Navigator: nav,
		Strategy:  strategy,
		Debounce:  time.Hour,
		Logger:    logging.NewNop(),
	})
	return e, stack
}

func TestStartAdoptsURLOverlay(t *testing.T) {
	nav := newFakeNav("https://msn.example/?modal=SETTINGS")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	top := stack.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlaySettings, top.Type)
	assert.True(t, top.PersistInURL)
}

// A snapshot restored before Start and a URL deep-linking the same overlay
// describe one dialog, not two.
func TestStartReconcilesRestoredTopWithMatchingURL(t *testing.T) {
	nav := newFakeNav("https://msn.example/?modal=PROFILE")
	e, stack := newTestEngine(nav, StrategyURLWins)
	stack.Open(overlay.OpenRequest{Type: types.OverlayProfile, PersistInURL: true})

	e.Start()
	defer e.Stop()

	assert.Equal(t, 1, stack.Count())
	assert.Equal(t, 0, nav.replaceCount())
}

func TestStartKeepsRestoredTopOnBareURL(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	stack.Open(overlay.OpenRequest{Type: types.OverlayProfile, PersistInURL: true})

	e.Start()
	defer e.Stop()

	require.NotNil(t, stack.Top())
	assert.Equal(t, types.OverlayProfile, stack.Top().Type)
	assert.Equal(t, "PROFILE", nav.Current().Query().Get(ParamModal), "URL brought up to date")
}

func TestStartResolvesRestoredTopAgainstDeepLink(t *testing.T) {
	nav := newFakeNav("https://msn.example/?modal=SETTINGS")
	e, stack := newTestEngine(nav, StrategyURLWins)
	stack.Open(overlay.OpenRequest{Type: types.OverlayProfile, PersistInURL: true})

	e.Start()
	defer e.Stop()

	require.Equal(t, 1, stack.Count(), "replace, not push")
	assert.Equal(t, types.OverlaySettings, stack.Top().Type, "deep link outranks the snapshot")
}

func TestURLDrivenOpenDoesNotBounceBack(t *testing.T) {
	nav := newFakeNav("https://msn.example/?modal=INFO")
	e, _ := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	e.Flush()
	assert.Equal(t, 0, nav.replaceCount(), "adopting from URL must not rewrite the URL")
}

func TestStateWritesURLDebounced(t *testing.T) {
	nav := newFakeNav("https://msn.example/chat")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	stack.Open(overlay.OpenRequest{Type: types.OverlayInfo, PersistInURL: true})
	stack.ReplaceTop(overlay.OpenRequest{Type: types.OverlayConfirm, PersistInURL: true})
	stack.ReplaceTop(overlay.OpenRequest{
		Type:         types.OverlayProfile,
		Props:        map[string]interface{}{"userId": "u1"},
		PersistInURL: true,
	})
	assert.Equal(t, 0, nav.replaceCount(), "writes wait out the debounce window")

	e.Flush()
	assert.Equal(t, 1, nav.replaceCount(), "burst coalesces into one write")
	q := nav.Current().Query()
	assert.Equal(t, "PROFILE", q.Get(ParamModal))
	assert.NotEmpty(t, q.Get(ParamModalID))
}

func TestNonPersistentOverlayStaysOutOfURL(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	stack.Open(overlay.OpenRequest{Type: types.OverlayEmojiPicker})
	e.Flush()

	assert.Equal(t, 0, nav.replaceCount())
	assert.Empty(t, nav.Current().Query().Get(ParamModal))
}

func TestURLClearedClosesPersistentTop(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	stack.Open(overlay.OpenRequest{Type: types.OverlaySettings, PersistInURL: true})
	e.Flush()
	require.Equal(t, "SETTINGS", nav.Current().Query().Get(ParamModal))

	nav.set("https://msn.example/")
	e.HandleURLChange()
	e.Flush()

	assert.Nil(t, stack.Top())
}

func TestURLClearedLeavesNonPersistentTop(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	stack.Open(overlay.OpenRequest{Type: types.OverlayConfirm})
	e.HandleURLChange()
	e.Flush()

	require.NotNil(t, stack.Top())
	assert.Equal(t, types.OverlayConfirm, stack.Top().Type)
}

// setupConflict leaves the stack with a persistent INFO top and the URL
// claiming a CONFIRM overlay.
func setupConflict(t *testing.T, strategy ConflictStrategy) (*Engine, *overlay.Stack, *fakeNav) {
	t.Helper()
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, strategy)
	e.Start()
	t.Cleanup(e.Stop)

	stack.Open(overlay.OpenRequest{
		Type:         types.OverlayInfo,
		Props:        map[string]interface{}{"title": "state", "keep": "yes"},
		PersistInURL: true,
	})
	e.Flush()
	require.Equal(t, "INFO", nav.Current().Query().Get(ParamModal))

	nav.set("https://msn.example/?modal=CONFIRM&modalProps=" +
		mustEncodeProps(map[string]interface{}{"title": "url", "extra": "new"}))
	e.HandleURLChange()
	e.Flush()
	return e, stack, nav
}

func mustEncodeProps(props map[string]interface{}) string {
	c := NewCodec(0, logging.NewNop())
	encoded, ok := c.encodeProps(props)
	if !ok {
		panic("props did not encode")
	}
	return encoded
}

func TestConflictURLWins(t *testing.T) {
	_, stack, _ := setupConflict(t, StrategyURLWins)

	top := stack.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlayConfirm, top.Type)
	assert.Equal(t, "url", top.Props["title"])
	assert.Equal(t, 1, stack.Count(), "replace, not push")
}

func TestConflictOverlayWins(t *testing.T) {
	_, stack, nav := setupConflict(t, StrategyOverlayWins)

	top := stack.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlayInfo, top.Type, "state untouched")
	assert.Equal(t, "INFO", nav.Current().Query().Get(ParamModal), "URL rewritten from state")
}

func TestConflictMerge(t *testing.T) {
	_, stack, _ := setupConflict(t, StrategyMerge)

	top := stack.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlayInfo, top.Type, "state wins on type")
	assert.Equal(t, "url", top.Props["title"], "URL props override")
	assert.Equal(t, "yes", top.Props["keep"], "state-only keys retained")
	assert.Equal(t, "new", top.Props["extra"], "URL-only keys adopted")
}

func TestConflictMergeConvergesURL(t *testing.T) {
	e, stack, nav := setupConflict(t, StrategyMerge)

	assert.Equal(t, "INFO", nav.Current().Query().Get(ParamModal), "URL rewritten onto the merged entry")

	top := stack.Top()
	require.NotNil(t, top)
	replaces := nav.replaceCount()
	e.HandleURLChange()
	e.Flush()
	assert.Equal(t, replaces, nav.replaceCount(), "no further writes once converged")
	assert.Equal(t, top.ID, stack.Top().ID, "no repeated conflict resolution")
}

func TestConflictIgnore(t *testing.T) {
	_, stack, nav := setupConflict(t, StrategyIgnore)

	top := stack.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlayInfo, top.Type)
	assert.Equal(t, "CONFIRM", nav.Current().Query().Get(ParamModal))
}

func TestPopStateActsOnlyOnTypeMismatch(t *testing.T) {
	nav := newFakeNav("https://msn.example/?modal=INFO")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	defer e.Stop()

	before := stack.Top()
	require.NotNil(t, before)

	e.HandlePopState()
	after := stack.Top()
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID, "same type leaves the entry alone")

	nav.set("https://msn.example/?modal=SETTINGS")
	e.HandlePopState()
	require.NotNil(t, stack.Top())
	assert.Equal(t, types.OverlaySettings, stack.Top().Type)
}

func TestStopCancelsPendingWork(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()

	stack.Open(overlay.OpenRequest{Type: types.OverlayInfo, PersistInURL: true})
	e.Stop()
	e.Flush()

	assert.Equal(t, 0, nav.replaceCount())

	stack.Open(overlay.OpenRequest{Type: types.OverlayConfirm, PersistInURL: true})
	e.Flush()
	assert.Equal(t, 0, nav.replaceCount(), "stopped engine no longer observes the stack")
}

func TestStartIsIdempotent(t *testing.T) {
	nav := newFakeNav("https://msn.example/")
	e, stack := newTestEngine(nav, StrategyURLWins)
	e.Start()
	e.Start()
	defer e.Stop()

	stack.Open(overlay.OpenRequest{Type: types.OverlayInfo, PersistInURL: true})
	e.Flush()
	assert.Equal(t, 1, nav.replaceCount())
}

func TestEngineShareableURL(t *testing.T) {
	nav := newFakeNav("https://msn.example/chat?chat=alice")
	e, _ := newTestEngine(nav, StrategyURLWins)

	got := e.ShareableURL(types.OverlayEntry{Type: types.OverlayAddContact})
	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "ADD_CONTACT", parsed.Query().Get(ParamModal))
	assert.Equal(t, "alice", parsed.Query().Get("chat"))
	assert.Equal(t, 0, nav.replaceCount(), "generation never navigates")
}
