package immich

import (
	"log/slog"

	"photoimport/internal/config"
	"photoimport/internal/upload"
)

// NewClient returns the upload client selected by upload.mode, bound to one
// account's credential.
func NewClient(cfg *config.Config, apiKey string, logger *slog.Logger) upload.Client {
	if cfg.Upload.Mode == config.UploadModeAPI {
		return NewAPIClient(cfg.Immich.URL, apiKey, cfg.RequestTimeout(), nil, logger)
	}
	return &ContainerClient{
		Runtime: cfg.Upload.ContainerRuntime,
		Image:   cfg.Upload.Image,
		Network: cfg.Upload.Network,
		URL:     cfg.Immich.URL,
		APIKey:  apiKey,
	}
}
