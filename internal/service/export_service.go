package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
	"github.com/noah-isme/sma-gradebook/pkg/export"
	"github.com/noah-isme/sma-gradebook/pkg/storage"
)

type summarySource interface {
	Summary(ctx context.Context) (*dto.CourseSummary, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportDownload is an opened export ready to be streamed.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService renders the course summary into report files and signs download links.
type ExportService struct {
	source    summarySource
	storage   fileStorage
	renderers map[models.ExportFormat]datasetRenderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(source summarySource, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.APIPrefix) == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		source:  source,
		storage: store,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Export renders the current course summary in the given format and stores it.
// ref names the export in its signed token and must not contain dots; empty means a fresh UUID.
func (s *ExportService) Export(ctx context.Context, format models.ExportFormat, ref string) (*ExportResult, error) {
	result, err := s.export(ctx, format, ref)
	label := string(format)
	if _, ok := s.renderers[format]; !ok {
		label = "unsupported"
	}
	s.metrics.RecordExport(label, err)
	return result, err
}

func (s *ExportService) export(ctx context.Context, format models.ExportFormat, ref string) (*ExportResult, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	summary, err := s.source.Summary(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(BuildCourseDataset(summary))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := s.buildFilename(summary.Name, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	if ref == "" {
		ref = uuid.NewString()
	}

	result := &ExportResult{RelativePath: relPath, Format: format}
	if s.signer != nil {
		token, expiresAt, err := s.signer.Generate(ref, relPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
		}
		result.Token = token
		result.ExpiresAt = expiresAt
		result.URL = fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
	}

	s.logger.Info("course exported", zap.String("format", string(format)), zap.String("path", relPath))
	return result, nil
}

// Resolve validates a download token and opens the referenced export.
func (s *ExportService) Resolve(token string) (*ExportDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Wrap(err, appErrors.ErrExpired.Code, appErrors.ErrExpired.Status, appErrors.ErrExpired.Message)
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	format := models.ExportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(relPath)), "."))
	return &ExportDownload{File: file, Filename: relPath, Format: format, ExpiresAt: expiresAt}, nil
}

// Cleanup removes exports older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// BuildCourseDataset flattens a course summary into a tabular report.
func BuildCourseDataset(summary *dto.CourseSummary) export.Dataset {
	dataset := export.Dataset{
		Title: summary.Name,
		Meta: []string{
			fmt.Sprintf("Pass threshold: %.2f", summary.PassThreshold),
			fmt.Sprintf("Course average: %.2f", summary.Average),
			fmt.Sprintf("Approved: %d / Failed: %d", len(summary.Approved), len(summary.Failed)),
		},
		Headers: []string{"ID", "Name", "Grades", "Average", "Status"},
		Rows:    make([]map[string]string, 0, len(summary.Students)),
	}
	for _, st := range summary.Students {
		grades := make([]string, len(st.Grades))
		for i, g := range st.Grades {
			grades[i] = strconv.FormatFloat(g, 'f', -1, 64)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":      st.ID.String(),
			"Name":    st.Name,
			"Grades":  strings.Join(grades, " "),
			"Average": fmt.Sprintf("%.2f", st.Average),
			"Status":  string(st.Status),
		})
	}
	return dataset
}

func (s *ExportService) buildFilename(course string, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405.000")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(course), strings.ReplaceAll(timestamp, ".", "_"), format)
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
