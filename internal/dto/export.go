package dto

import (
	"time"

	"github.com/noah-isme/sma-gradebook/internal/models"
)

// ExportRequest captures POST /course/exports payload.
type ExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportJobResponse exposes export job progress.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL *string             `json:"download_url,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
