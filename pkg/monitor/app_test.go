package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/mockingbird/internal/config"
	"github.com/teslashibe/mockingbird/pkg/alert"
	"github.com/teslashibe/mockingbird/pkg/frame"
	"github.com/teslashibe/mockingbird/pkg/pose"
	"github.com/teslashibe/mockingbird/pkg/presence"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.Alert.Tracks = []string{"sounds/siren.mp3", "sounds/bark.mp3"}
	cfg.Alert.Player = "mock"
	cfg.Alert.PollInterval = 5 * time.Millisecond
	cfg.Session.FrameInterval = time.Millisecond
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Alert.PollInterval = 0
	_, err := New(cfg, Options{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun_BeforeInit(t *testing.T) {
	app, err := New(testConfig(), Options{})
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestRun_AutostartAndAlert(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Autostart = true

	src := frame.NewStaticSource()
	src.Advance(time.Second)
	engine := pose.NewMock()
	engine.DetectFunc = func(ctx context.Context, f frame.Frame) ([]pose.LandmarkSet, error) {
		return []pose.LandmarkSet{pose.Person(0.4, 0.6)}, nil
	}
	player := alert.NewMockPlayer()

	app, err := New(cfg, Options{Source: src, Engine: engine, Player: player})
	require.NoError(t, err)
	require.NoError(t, app.Init())

	// first track preloaded at startup
	assert.Equal(t, []string{"sounds/siren.mp3"}, player.Loads())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, app.Session().Running, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, player.Playing, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	app.Shutdown()

	assert.False(t, app.Session().Running())
	assert.False(t, player.Playing())

	var msgs []string
	for _, e := range app.Session().Events().All() {
		msgs = append(msgs, e.Message)
	}
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, "Detection enabled", msgs[0])
	assert.Equal(t, presence.MsgDetected, msgs[1])
	assert.Equal(t, alert.MsgPlaying, msgs[2])
	assert.Equal(t, "Detection disabled", msgs[len(msgs)-1])
}

func TestInit_NoTracks(t *testing.T) {
	cfg := testConfig()
	cfg.Alert.Tracks = nil

	app, err := New(cfg, Options{Source: frame.NewStaticSource(), Engine: pose.NewMock()})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	defer app.Shutdown()

	assert.Nil(t, app.Session().Alerts())
	require.NoError(t, app.Session().Start())
}

func TestInit_MissingModel(t *testing.T) {
	cfg := testConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.onnx")

	app, err := New(cfg, Options{Source: frame.NewStaticSource()})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	defer app.Shutdown()

	require.ErrorIs(t, app.loader.Wait(context.Background()), pose.ErrModelNotFound)
	st := app.Session().Status()
	assert.False(t, st.EngineReady)
	assert.False(t, st.CanToggle)
}

func TestInit_MissingCamera(t *testing.T) {
	cfg := testConfig()
	cfg.Camera.Device = filepath.Join(t.TempDir(), "missing.mp4")

	app, err := New(cfg, Options{Engine: pose.NewMock()})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	defer app.Shutdown()

	assert.Nil(t, app.capture)
	st := app.Session().Status()
	assert.False(t, st.SourceReady)
	assert.False(t, st.CanToggle)
}
