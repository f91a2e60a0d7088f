package playback

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Compile-time check
var _ AudioDriver = (*RemoteAudioDriver)(nil)

// RemoteAudioDriver backs a Controller whose audio is rendered by the patient's device.
// Load verifies that the narration resource is reachable and is audio; transport
// commands only track what the device has been told to do.
type RemoteAudioDriver struct {
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	reference string
	playing   bool
	rate      float64
}

// NewRemoteAudioDriver creates a driver that probes narration URLs with the given timeout.
func NewRemoteAudioDriver(timeout time.Duration, logger *zap.Logger) *RemoteAudioDriver {
	return &RemoteAudioDriver{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("RemoteAudioDriver"),
		rate:       1.0,
	}
}

// Load issues a HEAD request for reference and accepts 2xx audio responses.
func (d *RemoteAudioDriver) Load(ctx context.Context, reference string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reference, nil)
	if err != nil {
		return fmt.Errorf("invalid narration reference %q: %w", reference, err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("narration %q is unreachable: %w", reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("narration %q returned status %d", reference, resp.StatusCode)
	}
	if !isAudioContentType(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("narration %q has unsupported content type %q", reference, resp.Header.Get("Content-Type"))
	}

	d.mu.Lock()
	d.reference = reference
	d.playing = false
	d.mu.Unlock()
	d.logger.Debug("Narration verified", zap.String("reference", reference))
	return nil
}

func (d *RemoteAudioDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reference == "" {
		return fmt.Errorf("no narration loaded")
	}
	d.playing = true
	return nil
}

func (d *RemoteAudioDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *RemoteAudioDriver) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *RemoteAudioDriver) SetRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = rate
	return nil
}

func (d *RemoteAudioDriver) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reference = ""
	d.playing = false
	return nil
}

func isAudioContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/") || mediaType == "application/octet-stream"
}
