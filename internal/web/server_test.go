package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/report"
	"github.com/kozaktomas/xiangxin/internal/session"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Name() string { return "stub" }

func (stubAnalyzer) Analyze(context.Context, capture.EncodedImage) (*report.AnalysisReport, error) {
	return &report.AnalysisReport{Score: 72, PrimaryCategory: report.CategoryFire}, nil
}

func testServer(t *testing.T) (*Server, *http.Client, string) {
	t.Helper()
	cfg := &config.Config{
		Analysis: config.AnalysisConfig{
			Provider:       "openai",
			Pipeline:       "single",
			MaxUploadBytes: 5 << 20,
			Timeout:        10 * time.Second,
		},
		Web: config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "test-secret"},
	}
	srv := NewServer(cfg, Dependencies{Analyzer: stubAnalyzer{}})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Sessions().Stop()
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return srv, &http.Client{Jar: jar, Timeout: 10 * time.Second}, ts.URL
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 140, B: 110, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeView(t *testing.T, resp *http.Response) session.View {
	t.Helper()
	defer resp.Body.Close()
	var view session.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	return view
}

func TestServer_Health(t *testing.T) {
	_, client, url := testServer(t)

	resp, err := client.Get(url + "/api/v1/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_SessionIsBoundToCookie(t *testing.T) {
	srv, client, url := testServer(t)

	for range 3 {
		resp, err := client.Get(url + "/api/v1/session")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		view := decodeView(t, resp)
		if view.State != session.StateHome {
			t.Errorf("expected home, got %s", view.State)
		}
	}

	if n := srv.Sessions().Count(); n != 1 {
		t.Errorf("expected 1 session for one client, got %d", n)
	}
}

func TestServer_UploadFlow(t *testing.T) {
	srv, client, url := testServer(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "face.png")
	part.Write(pngBytes(t))
	writer.Close()

	resp, err := client.Post(url+"/api/v1/session/upload", writer.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	view := decodeView(t, resp)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if view.State != session.StateAnalyzing {
		t.Errorf("expected analyzing, got %s", view.State)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := client.Get(url + "/api/v1/session")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		view = decodeView(t, resp)
		if view.State == session.StateReportReady || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if view.State != session.StateReportReady || view.Report == nil || view.Report.Score != 72 {
		t.Fatalf("expected report with score 72, got %+v", view)
	}

	resp, err = client.Post(url+"/api/v1/session/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	view = decodeView(t, resp)
	if view.State != session.StateHome || view.Report != nil {
		t.Errorf("expected clean home, got %+v", view)
	}
	if srv.Sessions().Count() != 1 {
		t.Errorf("expected 1 session, got %d", srv.Sessions().Count())
	}
}

func TestServer_NoCameraConfigured(t *testing.T) {
	_, client, url := testServer(t)

	resp, err := client.Post(url+"/api/v1/session/capture/start", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestServer_Analyze(t *testing.T) {
	_, client, url := testServer(t)

	payload, _ := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString(pngBytes(t))})
	resp, err := client.Post(url+"/api/v1/analyze", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var r report.AnalysisReport
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if r.Score != 72 {
		t.Errorf("expected score 72, got %d", r.Score)
	}
}

func TestServer_RunsWithoutDatabase(t *testing.T) {
	_, client, url := testServer(t)

	resp, err := client.Get(url + "/api/v1/runs/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestServer_ServesFrontend(t *testing.T) {
	_, client, url := testServer(t)

	for _, path := range []string{"/", "/report"} {
		resp, err := client.Get(url + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), "/assets/app.js") {
			t.Errorf("%s: expected index.html", path)
		}
	}

	resp, err := client.Get(url + "/assets/missing.js")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing asset, got %d", resp.StatusCode)
	}
}
