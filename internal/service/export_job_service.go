package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
	"github.com/noah-isme/sma-gradebook/pkg/jobs"
)

// ExportJobType labels course export jobs on the queue.
const ExportJobType = "course_export"

type courseExporter interface {
	Export(ctx context.Context, format models.ExportFormat, ref string) (*ExportResult, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
	MaxRetries() int
}

// ExportJobService tracks asynchronous exports in memory and runs them on a job queue.
type ExportJobService struct {
	exporter  courseExporter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.RWMutex
	jobs  map[string]*models.ExportJob
	queue jobQueue
}

// NewExportJobService constructs ExportJobService. The queue is attached later with AttachQueue
// because the queue's handler is this service's Handle method.
func NewExportJobService(exporter courseExporter, validate *validator.Validate, logger *zap.Logger) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobService{
		exporter:  exporter,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		jobs:      make(map[string]*models.ExportJob),
	}
}

// AttachQueue wires the queue used to run export jobs.
func (s *ExportJobService) AttachQueue(queue jobQueue) {
	s.mu.Lock()
	s.queue = queue
	s.mu.Unlock()
}

// Enqueue registers a new export job and schedules it.
func (s *ExportJobService) Enqueue(ctx context.Context, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	req.Format = models.ExportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be one of csv, pdf or xlsx")
	}

	s.mu.Lock()
	queue := s.queue
	if queue == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue not available")
	}
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
		CreatedAt: s.now().UTC(),
	}
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: job.Format}); err != nil {
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("export queued", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return s.Status(ctx, job.ID)
}

// Status reports the progress of a job.
func (s *ExportJobService) Status(_ context.Context, id string) (*dto.ExportJobResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return toExportJobResponse(job), nil
}

// Handle runs a queued export. Failures are retried by the queue; the job is marked
// failed once the final attempt errors.
func (s *ExportJobService) Handle(ctx context.Context, job jobs.Job) error {
	if !s.update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportStatusProcessing
		j.Attempts = job.Attempt + 1
	}) {
		s.logger.Warn("dropping unknown export job", zap.String("job_id", job.ID))
		return nil
	}

	format, _ := job.Payload.(models.ExportFormat)
	result, err := s.exporter.Export(ctx, format, job.ID)
	if err != nil {
		final := true
		s.mu.RLock()
		if s.queue != nil {
			final = job.Attempt >= s.queue.MaxRetries()
		}
		s.mu.RUnlock()

		msg := err.Error()
		s.update(job.ID, func(j *models.ExportJob) {
			j.Error = msg
			if final {
				now := s.now().UTC()
				j.Status = models.ExportStatusFailed
				j.FinishedAt = &now
				return
			}
			j.Status = models.ExportStatusQueued
		})
		return err
	}

	s.update(job.ID, func(j *models.ExportJob) {
		now := s.now().UTC()
		j.Status = models.ExportStatusFinished
		j.RelativePath = result.RelativePath
		j.Token = result.Token
		j.DownloadURL = result.URL
		j.Error = ""
		j.FinishedAt = &now
		if !result.ExpiresAt.IsZero() {
			expires := result.ExpiresAt
			j.ExpiresAt = &expires
		}
	})
	s.logger.Info("export finished", zap.String("job_id", job.ID), zap.String("path", result.RelativePath))
	return nil
}

// Forget drops finished or failed jobs created before cutoff.
func (s *ExportJobService) Forget(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.FinishedAt == nil || job.CreatedAt.After(cutoff) {
			continue
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}

func (s *ExportJobService) update(id string, fn func(*models.ExportJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

func toExportJobResponse(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		ID:     job.ID,
		Format: job.Format,
		Status: job.Status,
	}
	if job.DownloadURL != "" {
		url := job.DownloadURL
		resp.DownloadURL = &url
	}
	if job.ExpiresAt != nil {
		expires := *job.ExpiresAt
		resp.ExpiresAt = &expires
	}
	if job.Error != "" {
		msg := job.Error
		resp.Error = &msg
	}
	return resp
}
