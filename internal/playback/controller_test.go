package playback_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"exposure-server/internal/playback"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDriver blocks Load until release is closed (when set) and counts transport calls.
type fakeDriver struct {
	mu       sync.Mutex
	release  chan struct{}
	loadErr  error
	plays    int
	pauses   int
	unloads  int
	rewinds  int
	lastRate float64
}

func (d *fakeDriver) Load(ctx context.Context, reference string) error {
	d.mu.Lock()
	release := d.release
	err := d.loadErr
	d.mu.Unlock()
	if release != nil {
		<-release
	}
	return err
}

func (d *fakeDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	return nil
}

func (d *fakeDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *fakeDriver) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rewinds++
	return nil
}

func (d *fakeDriver) SetRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRate = rate
	return nil
}

func (d *fakeDriver) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unloads++
	return nil
}

func (d *fakeDriver) playCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays
}

func waitForStatus(t *testing.T, c *playback.Controller, status models.PlaybackStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State().Status == status
	}, time.Second, 5*time.Millisecond, "expected playback status %s, got %s", status, c.State().Status)
}

func TestController_DeferredPlayPauseDuringLoad(t *testing.T) {
	driver := &fakeDriver{release: make(chan struct{})}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	assert.Equal(t, models.PlaybackLoading, c.State().Status)

	require.NoError(t, c.PlayPause())
	require.NoError(t, c.PlayPause())
	assert.Equal(t, 0, driver.playCount())

	close(driver.release)
	waitForStatus(t, c, models.PlaybackPlaying)
	assert.Equal(t, 1, driver.playCount())
}

func TestController_LoadWithoutPlayStaysPaused(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)
	assert.True(t, c.State().PositionAtStart)
	assert.Equal(t, 0, driver.playCount())

	require.NoError(t, c.PlayPause())
	assert.Equal(t, models.PlaybackPlaying, c.State().Status)
	require.NoError(t, c.PlayPause())
	assert.Equal(t, models.PlaybackPaused, c.State().Status)
}

func TestController_AutoPlayIsOneShot(t *testing.T) {
	driver := &fakeDriver{release: make(chan struct{})}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	assert.True(t, c.RequestAutoPlay())
	assert.False(t, c.RequestAutoPlay(), "auto-play must arm once per resource")
	require.NoError(t, c.PlayPause(), "explicit play while auto-play is armed must not double trigger")

	close(driver.release)
	waitForStatus(t, c, models.PlaybackPlaying)
	assert.Equal(t, 1, driver.playCount())

	assert.False(t, c.RequestAutoPlay(), "auto-play is rejected once the resource has loaded")
}

func TestController_AutoPlayRearmedForNextChapter(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)

	driver.mu.Lock()
	driver.release = make(chan struct{})
	driver.mu.Unlock()

	c.Load(context.Background(), "http://audio/stage2.mp3")
	assert.True(t, c.RequestAutoPlay())
	close(driver.release)
	waitForStatus(t, c, models.PlaybackPlaying)
}

func TestController_FinishedRewindsAndWaitsForPlayPause(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)
	require.NoError(t, c.PlayPause())
	require.NoError(t, c.HandleFinished())

	state := c.State()
	assert.Equal(t, models.PlaybackFinished, state.Status)
	assert.True(t, state.PositionAtStart)
	assert.Equal(t, 1, driver.rewinds)

	require.NoError(t, c.PlayPause())
	assert.Equal(t, models.PlaybackPlaying, c.State().Status)
	assert.Equal(t, 2, driver.playCount())
}

func TestController_HandleFinishedRequiresPlaying(t *testing.T) {
	c := playback.NewController(&fakeDriver{}, zap.NewNop())
	err := c.HandleFinished()
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestController_LoadUnloadsPreviousResource(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)
	c.Load(context.Background(), "http://audio/stage2.mp3")
	waitForStatus(t, c, models.PlaybackPaused)

	assert.Equal(t, 1, driver.unloads)
	assert.Equal(t, "http://audio/stage2.mp3", c.State().Reference)
}

func TestController_StaleLoadIsIgnored(t *testing.T) {
	driver := &fakeDriver{release: make(chan struct{})}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/stage1.mp3")
	require.NoError(t, c.PlayPause())
	c.Unload()
	close(driver.release)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, models.PlaybackIdle, c.State().Status)
	assert.Equal(t, 0, driver.playCount())
}

func TestController_LoadErrorDowngradesToError(t *testing.T) {
	driver := &fakeDriver{loadErr: errors.New("404")}
	c := playback.NewController(driver, zap.NewNop())

	c.Load(context.Background(), "http://audio/missing.mp3")
	waitForStatus(t, c, models.PlaybackError)

	err := c.PlayPause()
	assert.ErrorIs(t, err, models.ErrPlaybackUnavailable)
	assert.Contains(t, c.State().Error, "404")
}

func TestController_PlayPauseWithoutAudio(t *testing.T) {
	c := playback.NewController(&fakeDriver{}, zap.NewNop())
	assert.ErrorIs(t, c.PlayPause(), models.ErrNoAudio)
}

func TestController_StatusListener(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	var mu sync.Mutex
	var seen []models.PlaybackStatus
	c.OnStatusChange(func(state models.PlaybackState) {
		mu.Lock()
		seen = append(seen, state.Status)
		mu.Unlock()
	})

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)
	c.Unload()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.PlaybackStatus{models.PlaybackLoading, models.PlaybackPaused, models.PlaybackIdle}, seen)
}

func TestClampRate(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 1.0},
		{1.1, 1.0},
		{1.13, 1.25},
		{0.1, 0.5},
		{3.0, 2.0},
		{1.75, 1.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, playback.ClampRate(tt.in), 1e-9, "ClampRate(%v)", tt.in)
	}
}

func TestController_SetRate(t *testing.T) {
	driver := &fakeDriver{}
	c := playback.NewController(driver, zap.NewNop())

	assert.InDelta(t, 1.25, c.SetRate(0.25), 1e-9)
	assert.InDelta(t, 2.0, c.SetRate(5), 1e-9)
	assert.InDelta(t, 0.5, c.SetRate(-5), 1e-9)

	c.Load(context.Background(), "http://audio/stage1.mp3")
	waitForStatus(t, c, models.PlaybackPaused)
	c.SetRate(0.5)
	driver.mu.Lock()
	assert.InDelta(t, 1.0, driver.lastRate, 1e-9)
	driver.mu.Unlock()
}

func TestRemoteAudioDriver_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/static/audio/ok.mp3":
			w.Header().Set("Content-Type", "audio/mpeg")
		case "/static/audio/page.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	driver := playback.NewRemoteAudioDriver(time.Second, zap.NewNop())

	require.NoError(t, driver.Load(context.Background(), server.URL+"/static/audio/ok.mp3"))
	require.NoError(t, driver.Play())
	require.NoError(t, driver.Unload())
	assert.Error(t, driver.Play(), "play after unload must fail")

	assert.Error(t, driver.Load(context.Background(), server.URL+"/static/audio/page.html"))
	assert.Error(t, driver.Load(context.Background(), server.URL+"/static/audio/missing.mp3"))
}
