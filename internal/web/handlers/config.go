package handlers

import (
	"net/http"

	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/constants"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Provider        string         `json:"provider"`
	Pipeline        string         `json:"pipeline"`
	MaxUploadBytes  int64          `json:"max_upload_bytes"`
	CameraAvailable bool           `json:"camera_available"`
	RunLogEnabled   bool           `json:"run_log_enabled"`
	Providers       []ProviderInfo `json:"providers"`
}

// ProviderInfo represents information about an AI provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      constants.ProviderOpenAI,
			Available: h.config.OpenAI.Token != "",
		},
		{
			Name:      constants.ProviderArk,
			Available: h.config.Ark.APIKey != "" && h.config.Ark.EndpointID != "",
		},
		{
			Name:      constants.ProviderGemini,
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      constants.ProviderOllama,
			Available: true, // Always available (local)
		},
	}

	maxUpload := h.config.Analysis.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = constants.MaxUploadSize
	}

	response := ConfigResponse{
		Provider:        h.config.Analysis.Provider,
		Pipeline:        h.config.Analysis.Pipeline,
		MaxUploadBytes:  maxUpload,
		CameraAvailable: h.config.Camera.SnapshotURL != "",
		RunLogEnabled:   h.config.Database.URL != "",
		Providers:       providers,
	}

	respondJSON(w, http.StatusOK, response)
}
