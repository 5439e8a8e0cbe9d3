package capture

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kozaktomas/xiangxin/internal/constants"
)

// SnapshotCamera reads frames from an HTTP snapshot endpoint such as an IP
// camera's /snapshot.jpg.
type SnapshotCamera struct {
	url        string
	httpClient *http.Client
}

// NewSnapshotCamera creates a camera for the given snapshot URL.
func NewSnapshotCamera(snapshotURL string, timeout time.Duration) *SnapshotCamera {
	if timeout <= 0 {
		timeout = constants.DefaultCameraTimeout
	}
	return &SnapshotCamera{
		url:        snapshotURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Open checks the transport and fetches one frame from the endpoint.
func (c *SnapshotCamera) Open(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := checkSecure(c.url); err != nil {
		return nil, err
	}

	s := &snapshotStream{camera: c, constraints: constraints}
	if _, err := s.Frame(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// checkSecure accepts https and plain http to a loopback host.
func checkSecure(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid snapshot URL %q", raw)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme != "http" {
		return fmt.Errorf("unsupported snapshot scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return ErrInsecureContext
}

func (c *SnapshotCamera) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) > constants.MaxUploadSize {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", constants.MaxUploadSize)
	}
	return data, nil
}

type snapshotStream struct {
	camera      *SnapshotCamera
	constraints Constraints

	mu      sync.Mutex
	stopped bool
}

// Frame fetches a snapshot scaled to the requested resolution.
func (s *snapshotStream) Frame(ctx context.Context) (EncodedImage, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return EncodedImage{}, fmt.Errorf("stream stopped")
	}

	data, err := s.camera.fetch(ctx)
	if err != nil {
		return EncodedImage{}, err
	}
	img, err := decodeBounded(data)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	width, height := s.constraints.Width, s.constraints.Height
	if width <= 0 || height <= 0 {
		width, height = constants.MaxImageSize, constants.MaxImageSize
	}
	return encode(fit(img, width, height))
}

func (s *snapshotStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
