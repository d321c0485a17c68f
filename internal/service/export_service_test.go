package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
	"github.com/noah-isme/sma-gradebook/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	gradebook, _ := openedGradebook(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(gradebook, store, signer, NewMetricsService(), ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }
	return svc, store
}

func TestExportServiceExportCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), models.ExportFormatCSV, "job1")
	require.NoError(t, err)
	assert.Equal(t, "algoritmos_20260301_103000_000.csv", result.RelativePath)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/job1."))
	assert.False(t, result.ExpiresAt.IsZero())

	f, err := store.Open(result.RelativePath)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Grades,Average,Status", lines[0])
	assert.Equal(t, "A1,Ana,80 90,85.00,APPROVED", lines[1])
	assert.Equal(t, "7,Luis,40,40.00,FAILED", lines[2])
}

func TestExportServiceAllFormats(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	for _, format := range []models.ExportFormat{models.ExportFormatCSV, models.ExportFormatPDF, models.ExportFormatXLSX} {
		result, err := svc.Export(context.Background(), format, "")
		require.NoError(t, err, format)
		assert.True(t, strings.HasSuffix(result.RelativePath, "."+string(format)))
	}
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, err := svc.Export(context.Background(), models.ExportFormat("docx"), "job1")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedFormat)
}

func TestExportServiceLabelsUnsupportedFormats(t *testing.T) {
	gradebook, _ := openedGradebook(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	metrics := NewMetricsService()
	svc := NewExportService(gradebook, store, nil, metrics, ExportConfig{}, zaptest.NewLogger(t))

	for _, format := range []string{"docx", "../etc", "csv"} {
		_, _ = svc.Export(context.Background(), models.ExportFormat(format), "")
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "gradebook_exports_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["format"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"unsupported/error": 2, "csv/success": 1}, counts)
}

func TestExportServiceResolve(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), models.ExportFormatXLSX, "job1")
	require.NoError(t, err)

	download, err := svc.Resolve(result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatXLSX, download.Format)
	assert.Equal(t, result.RelativePath, download.Filename)

	_, err = svc.Resolve("job1.1.AAAA.deadbeef")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	expired, _, err := storage.NewSignedURLSigner("secret", time.Nanosecond).Generate("job1", result.RelativePath)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = svc.Resolve(expired)
	assert.ErrorIs(t, err, appErrors.ErrExpired)
}

func TestExportServiceCleanup(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, err := svc.Export(context.Background(), models.ExportFormatCSV, "job1")
	require.NoError(t, err)

	removed, err := svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "course", sanitizeFilename("  "))
	assert.Equal(t, "introducción_a_la_ingeniería", sanitizeFilename("Introducción a la Ingeniería"))
	assert.Equal(t, "a-b-c", sanitizeFilename("a/b:c"))
}
