package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
	"github.com/noah-isme/sma-gradebook/pkg/jobs"
)

type exporterStub struct {
	err   error
	calls int
}

func (e *exporterStub) Export(_ context.Context, format models.ExportFormat, ref string) (*ExportResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &ExportResult{
		RelativePath: "course." + string(format),
		Token:        ref + ".token",
		URL:          "/api/v1/exports/download/" + ref,
		Format:       format,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

type recordingQueue struct {
	jobs       []jobs.Job
	maxRetries int
	err        error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) MaxRetries() int { return q.maxRetries }

func TestExportJobServiceLifecycle(t *testing.T) {
	exporter := &exporterStub{}
	queue := &recordingQueue{maxRetries: 1}
	svc := NewExportJobService(exporter, nil, zaptest.NewLogger(t))
	svc.AttachQueue(queue)
	ctx := context.Background()

	resp, err := svc.Enqueue(ctx, dto.ExportRequest{Format: " CSV "})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	assert.Equal(t, models.ExportFormatCSV, resp.Format)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].ID)
	assert.Equal(t, ExportJobType, queue.jobs[0].Type)

	require.NoError(t, svc.Handle(ctx, queue.jobs[0]))

	status, err := svc.Status(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	require.NotNil(t, status.DownloadURL)
	assert.Equal(t, "/api/v1/exports/download/"+resp.ID, *status.DownloadURL)
	assert.NotNil(t, status.ExpiresAt)
	assert.Nil(t, status.Error)
}

func TestExportJobServiceFailureAfterRetries(t *testing.T) {
	exporter := &exporterStub{err: errors.New("disk full")}
	queue := &recordingQueue{maxRetries: 1}
	svc := NewExportJobService(exporter, nil, zaptest.NewLogger(t))
	svc.AttachQueue(queue)
	ctx := context.Background()

	resp, err := svc.Enqueue(ctx, dto.ExportRequest{Format: models.ExportFormatPDF})
	require.NoError(t, err)
	job := queue.jobs[0]

	require.Error(t, svc.Handle(ctx, job))
	status, err := svc.Status(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)
	require.NotNil(t, status.Error)

	job.Attempt = 1
	require.Error(t, svc.Handle(ctx, job))
	status, err = svc.Status(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, status.Status)
	assert.Equal(t, "disk full", *status.Error)
	assert.Equal(t, 2, exporter.calls)
}

func TestExportJobServiceValidation(t *testing.T) {
	svc := NewExportJobService(&exporterStub{}, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, dto.ExportRequest{Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	svc.AttachQueue(&recordingQueue{})
	_, err = svc.Enqueue(ctx, dto.ExportRequest{Format: "docx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Enqueue(ctx, dto.ExportRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Status(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportJobServiceQueueRejects(t *testing.T) {
	svc := NewExportJobService(&exporterStub{}, nil, zaptest.NewLogger(t))
	queue := &recordingQueue{err: jobs.ErrNotStarted}
	svc.AttachQueue(queue)

	_, err := svc.Enqueue(context.Background(), dto.ExportRequest{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.ErrorIs(t, err, jobs.ErrNotStarted)
	assert.Empty(t, svc.jobs)
}

func TestExportJobServiceOnRealQueue(t *testing.T) {
	svc := NewExportJobService(&exporterStub{}, nil, zaptest.NewLogger(t))
	queue := jobs.NewQueue("exports", svc.Handle, jobs.QueueConfig{Logger: zaptest.NewLogger(t)})
	svc.AttachQueue(queue)
	queue.Start(context.Background())
	defer queue.Stop()

	resp, err := svc.Enqueue(context.Background(), dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := svc.Status(context.Background(), resp.ID)
		return err == nil && status.Status == models.ExportStatusFinished
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExportJobServiceForget(t *testing.T) {
	svc := NewExportJobService(&exporterStub{}, nil, zaptest.NewLogger(t))
	queue := &recordingQueue{}
	svc.AttachQueue(queue)
	ctx := context.Background()

	done, err := svc.Enqueue(ctx, dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, queue.jobs[0]))
	pending, err := svc.Enqueue(ctx, dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Forget(time.Now().Add(time.Minute)))
	_, err = svc.Status(ctx, done.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Status(ctx, pending.ID)
	assert.NoError(t, err)
}
