package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/constants"
)

// ErrPermissionDenied is returned by a Camera when access is refused.
var ErrPermissionDenied = errors.New("camera permission denied")

// ErrInsecureContext is returned when a camera cannot be reached over a
// secure transport.
var ErrInsecureContext = errors.New("camera requires a secure context")

// ErrNoCamera is returned when no camera is configured.
var ErrNoCamera = errors.New("no camera configured")

// Constraints describe the requested video stream.
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
	Audio      bool
}

// DefaultConstraints requests the front camera at 1280x720 without audio.
func DefaultConstraints() Constraints {
	return Constraints{
		FacingMode: constants.CameraFacingMode,
		Width:      constants.CameraWidth,
		Height:     constants.CameraHeight,
		Audio:      false,
	}
}

// Camera opens live video streams.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream. Stop must be safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (EncodedImage, error)
	Stop()
}

// StreamHandle owns an open stream and guarantees it is stopped exactly once.
type StreamHandle struct {
	stream Stream
	once   sync.Once

	mu     sync.Mutex
	active bool
}

// Acquire opens a stream. Any failure is reported as CameraUnavailable and
// leaves no resource behind.
func Acquire(ctx context.Context, cam Camera, c Constraints) (*StreamHandle, error) {
	if cam == nil {
		return nil, apperrors.CameraUnavailable("no camera is available", ErrNoCamera)
	}
	stream, err := cam.Open(ctx, c)
	if err != nil {
		return nil, apperrors.CameraUnavailable(cameraMessage(err), err)
	}
	return &StreamHandle{stream: stream, active: true}, nil
}

func cameraMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "camera permission was denied"
	case errors.Is(err, ErrInsecureContext):
		return "the camera requires a secure connection"
	case errors.Is(err, ErrNoCamera):
		return "no camera is available"
	default:
		return "failed to open the camera"
	}
}

// Capture freezes the current frame.
func (h *StreamHandle) Capture(ctx context.Context) (EncodedImage, error) {
	if !h.Active() {
		return EncodedImage{}, apperrors.CameraUnavailable("the camera stream is not active", nil)
	}
	img, err := h.stream.Frame(ctx)
	if err != nil {
		return EncodedImage{}, apperrors.CameraUnavailable("failed to capture a frame", err)
	}
	return img, nil
}

// Release stops the stream. It is idempotent and safe on a nil handle.
func (h *StreamHandle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.mu.Lock()
		h.active = false
		h.mu.Unlock()
		h.stream.Stop()
	})
}

// Active reports whether the stream is still live.
func (h *StreamHandle) Active() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Unavailable is a Camera that always fails, used when none is configured.
type Unavailable struct{}

// Open implements Camera.
func (Unavailable) Open(context.Context, Constraints) (Stream, error) {
	return nil, ErrNoCamera
}
