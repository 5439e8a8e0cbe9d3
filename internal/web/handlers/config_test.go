package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/xiangxin/internal/config"
)

func getConfig(t *testing.T, cfg *config.Config) ConfigResponse {
	t.Helper()
	handler := NewConfigHandler(cfg)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response ConfigResponse
	parseJSONResponse(t, recorder, &response)
	return response
}

func TestConfigHandler_Get_Analysis(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Pipeline = "two-stage"

	response := getConfig(t, cfg)

	if response.Provider != "openai" || response.Pipeline != "two-stage" {
		t.Errorf("unexpected analysis settings %q/%q", response.Provider, response.Pipeline)
	}
	if response.MaxUploadBytes != 5<<20 {
		t.Errorf("expected 5MB limit, got %d", response.MaxUploadBytes)
	}
	if response.CameraAvailable || response.RunLogEnabled {
		t.Error("camera and run log should be off without configuration")
	}
}

func TestConfigHandler_Get_DefaultUploadLimit(t *testing.T) {
	response := getConfig(t, &config.Config{})

	if response.MaxUploadBytes != 5<<20 {
		t.Errorf("expected default 5MB limit, got %d", response.MaxUploadBytes)
	}
}

func TestConfigHandler_Get_Camera(t *testing.T) {
	cfg := testConfig()
	cfg.Camera.SnapshotURL = "https://camera.local/snapshot.jpg"
	cfg.Database.URL = "postgres://localhost/xiangxin"

	response := getConfig(t, cfg)

	if !response.CameraAvailable {
		t.Error("expected camera to be available")
	}
	if !response.RunLogEnabled {
		t.Error("expected run log to be enabled")
	}
}

func TestConfigHandler_Get_Providers(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAI.Token = "sk-test"
	cfg.Ark.APIKey = "ark-key" // no endpoint ID

	response := getConfig(t, cfg)

	want := map[string]bool{
		"openai": true,
		"ark":    false,
		"gemini": false,
		"ollama": true,
	}
	if len(response.Providers) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(response.Providers))
	}
	for _, p := range response.Providers {
		if available, ok := want[p.Name]; !ok || available != p.Available {
			t.Errorf("provider %s: available=%v, want %v", p.Name, p.Available, available)
		}
	}
}
