package mobile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

type fakeBridge struct {
	os            types.OS
	preloadErr    map[string]error
	preloaded     []string
	back          func()
	backCount     int
	appState      func(types.AppState)
	appStateCount int
	deepLink      func(string)
	deepLinkCount int
	minimized     int
	shared        []types.ShareContent
	opened        []string
}

func (f *fakeBridge) OS() types.OS { return f.os }

func (f *fakeBridge) PreloadPlugin(ctx context.Context, name string) error {
	if err := f.preloadErr[name]; err != nil {
		return err
	}
	f.preloaded = append(f.preloaded, name)
	return nil
}

func (f *fakeBridge) AddBackButtonListener(fn func()) (func() error, error) {
	f.back = fn
	f.backCount++
	return func() error {
		f.back = nil
		f.backCount--
		return nil
	}, nil
}

func (f *fakeBridge) AddAppStateListener(fn func(types.AppState)) (func() error, error) {
	f.appState = fn
	f.appStateCount++
	return func() error {
		f.appState = nil
		f.appStateCount--
		return nil
	}, nil
}

func (f *fakeBridge) AddDeepLinkListener(fn func(string)) (func() error, error) {
	f.deepLink = fn
	f.deepLinkCount++
	return func() error {
		f.deepLink = nil
		f.deepLinkCount--
		return nil
	}, nil
}

func (f *fakeBridge) MinimizeApp(ctx context.Context) error {
	f.minimized++
	return nil
}

func (f *fakeBridge) Share(ctx context.Context, content types.ShareContent) error {
	f.shared = append(f.shared, content)
	return nil
}

func (f *fakeBridge) OpenURL(ctx context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

func testConfig() platform.Config {
	return platform.Config{Logger: logging.NewNop()}
}

func TestInitializeWithoutBridgeFails(t *testing.T) {
	a := New(nil, testConfig())
	err := a.Initialize(context.Background())
	assert.ErrorIs(t, err, platform.ErrEnvironmentMismatch)
	assert.False(t, a.IsInitialized())
}

func TestPluginPreloadFailureNonFatal(t *testing.T) {
	bridge := &fakeBridge{preloadErr: map[string]error{PluginShare: errors.New("not installed")}}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))
	assert.True(t, a.IsInitialized())
	assert.Contains(t, bridge.preloaded, PluginApp)
	assert.Contains(t, bridge.preloaded, PluginBrowser)
}

func TestAndroidMinimizeFallback(t *testing.T) {
	bridge := &fakeBridge{os: types.OSAndroid}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))

	handled := true
	a.RegisterHandlers(platform.Handlers{
		OnBackButton: func(ctx context.Context) (bool, error) { return handled, nil },
	})
	require.NotNil(t, bridge.back)

	bridge.back()
	assert.Equal(t, 0, bridge.minimized, "handled back must not minimize")

	handled = false
	bridge.back()
	assert.Equal(t, 1, bridge.minimized, "unhandled back minimizes on Android")
}

func TestIOSNeverMinimizes(t *testing.T) {
	bridge := &fakeBridge{os: types.OSIOS}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))

	a.RegisterHandlers(platform.Handlers{
		OnBackButton: func(ctx context.Context) (bool, error) { return false, nil },
	})
	bridge.back()
	assert.Equal(t, 0, bridge.minimized)
}

func TestLazyListenersPerConcern(t *testing.T) {
	bridge := &fakeBridge{os: types.OSAndroid}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))

	a.RegisterHandlers(platform.Handlers{
		OnDeepLink: func(url string) {},
	})
	assert.Equal(t, 0, bridge.backCount)
	assert.Equal(t, 0, bridge.appStateCount)
	assert.Equal(t, 1, bridge.deepLinkCount)

	a.RegisterHandlers(platform.Handlers{
		OnAppStateChange: func(state types.AppState) {},
	})
	assert.Equal(t, 1, bridge.deepLinkCount, "merge keeps prior listener")
	assert.Equal(t, 1, bridge.appStateCount)

	a.UnregisterHandlers()
	assert.Equal(t, 0, bridge.deepLinkCount)
	assert.Equal(t, 0, bridge.appStateCount)
}

func TestAppStateAndDeepLinkDispatch(t *testing.T) {
	bridge := &fakeBridge{os: types.OSAndroid}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))

	var states []types.AppState
	var links []string
	a.RegisterHandlers(platform.Handlers{
		OnAppStateChange: func(state types.AppState) { states = append(states, state) },
		OnDeepLink:       func(url string) { links = append(links, url) },
	})

	bridge.appState(types.AppStateBackground)
	bridge.deepLink("msn://chat/42")

	assert.Equal(t, []types.AppState{types.AppStateBackground}, states)
	assert.Equal(t, []string{"msn://chat/42"}, links)
}

func TestCleanupDetachesEverything(t *testing.T) {
	bridge := &fakeBridge{os: types.OSAndroid}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))
	a.RegisterHandlers(platform.Handlers{
		OnBackButton:     func(ctx context.Context) (bool, error) { return false, nil },
		OnAppStateChange: func(state types.AppState) {},
		OnDeepLink:       func(url string) {},
	})

	a.Cleanup(context.Background())
	a.Cleanup(context.Background())
	assert.Equal(t, 0, bridge.backCount)
	assert.Equal(t, 0, bridge.appStateCount)
	assert.Equal(t, 0, bridge.deepLinkCount)
	assert.False(t, a.IsInitialized())
}

func TestShareAndOpenURL(t *testing.T) {
	bridge := &fakeBridge{os: types.OSAndroid}
	a := New(bridge, testConfig())
	require.NoError(t, a.Initialize(context.Background()))

	assert.True(t, a.Share(context.Background(), types.ShareContent{Text: "hey"}))
	assert.True(t, a.OpenDeepLink(context.Background(), "https://example.com"))
	assert.Len(t, bridge.shared, 1)
	assert.Equal(t, []string{"https://example.com"}, bridge.opened)
}
