package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/report"
	"github.com/kozaktomas/xiangxin/internal/session"
	"github.com/kozaktomas/xiangxin/internal/web/middleware"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			Provider:       "openai",
			Pipeline:       "single",
			MaxUploadBytes: 5 << 20,
		},
	}
}

// fakeAnalyzer returns a fixed result or error and counts calls.
type fakeAnalyzer struct {
	result *report.AnalysisReport
	err    error

	mu    sync.Mutex
	calls int
}

func (a *fakeAnalyzer) Name() string { return "fake" }

func (a *fakeAnalyzer) Analyze(context.Context, capture.EncodedImage) (*report.AnalysisReport, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.result, a.err
}

func (a *fakeAnalyzer) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeStream struct{}

func (fakeStream) Frame(context.Context) (capture.EncodedImage, error) {
	return capture.EncodedImage{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: capture.MIMETypeJPEG, Width: 1, Height: 1}, nil
}

func (fakeStream) Stop() {}

type fakeCamera struct{}

func (fakeCamera) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	return fakeStream{}, nil
}

func sampleReport() *report.AnalysisReport {
	return &report.AnalysisReport{Score: 72, PrimaryCategory: report.CategoryFire}
}

// newTestSession creates a session with a working camera and analyzer.
func newTestSession(t *testing.T, analyzer *fakeAnalyzer) *session.Session {
	t.Helper()
	s := session.New(session.Options{Camera: fakeCamera{}, Analyzer: analyzer})
	t.Cleanup(s.Close)
	return s
}

// requestWithSession creates a request with a capture session in context
func requestWithSession(method, path string, body *bytes.Buffer, s *session.Session) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), s))
}

// pngImage encodes a small opaque PNG
func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 210, G: 160, B: 130, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertErrorKind checks the kind field of a JSON error
func assertErrorKind(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var result ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if string(result.Kind) != expected {
		t.Errorf("expected kind '%s', got '%s'", expected, result.Kind)
	}
	if result.Error == "" {
		t.Error("expected a non-empty error message")
	}
}
