package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/sma-gradebook/internal/models"
	"github.com/noah-isme/sma-gradebook/internal/repository"
	"github.com/noah-isme/sma-gradebook/internal/service"
	"github.com/noah-isme/sma-gradebook/pkg/storage"
)

type menuFixture struct {
	book     *service.GradebookService
	repo     *repository.CourseFileRepository
	exporter *service.ExportService
	exports  string
}

func newMenuFixture(t *testing.T) menuFixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	dir := t.TempDir()
	repo := repository.NewCourseFileRepository(filepath.Join(dir, "datosDelCurso.json"), log)
	book := service.NewGradebookService(repo, nil, nil, nil, log, service.GradebookConfig{
		CourseName:    "Introducción a la Ingeniería de Software",
		PassThreshold: 70,
		SeedDemo:      true,
	})
	_, err := book.Open(context.Background())
	require.NoError(t, err)

	exportsDir := filepath.Join(dir, "exports")
	store, err := storage.NewLocalStorage(exportsDir)
	require.NoError(t, err)
	exporter := service.NewExportService(book, store, storage.NewSignedURLSigner("secret", 0), nil, service.ExportConfig{}, log)
	return menuFixture{book: book, repo: repo, exporter: exporter, exports: exportsDir}
}

func runMenu(t *testing.T, f menuFixture, script string) string {
	t.Helper()
	var out bytes.Buffer
	menu := NewMenu(f.book, f.exporter, strings.NewReader(script), &out, zaptest.NewLogger(t), MenuConfig{ExportDir: f.exports})
	require.NoError(t, menu.Run(context.Background()))
	return out.String()
}

func TestMenuAddStudentAndGradeThenExit(t *testing.T) {
	f := newMenuFixture(t)

	out := runMenu(t, f, strings.Join([]string{
		"1", "S005", "Maria Sol", "88, 92",
		"2", "S005", "100",
		"4", "S005",
		"0",
	}, "\n")+"\n")

	assert.Contains(t, out, "Student added: ID: S005, Name: Maria Sol, Grades: [88, 92], Average: 90.00")
	assert.Contains(t, out, "Grade added: ID: S005, Name: Maria Sol, Grades: [88, 92, 100], Average: 93.33")
	assert.Contains(t, out, "Average: 93.33, Status: Approved")
	assert.Contains(t, out, "Goodbye.")

	reloaded, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Len())
	maria, ok := reloaded.FindStudent(models.NewStringID("S005"))
	require.True(t, ok)
	assert.Equal(t, []float64{88, 92, 100}, maria.Grades())
}

func TestMenuShowResults(t *testing.T) {
	f := newMenuFixture(t)
	out := runMenu(t, f, "3\n0\n")
	assert.Contains(t, out, "Course average: 75.00")
	assert.Contains(t, out, "--- Failed students ---\nLuis Gómez\nPedro Paramo\n")
}

func TestMenuRejectsBadInput(t *testing.T) {
	f := newMenuFixture(t)

	out := runMenu(t, f, strings.Join([]string{
		"9",
		"1", "S006", "Eva", "80, ochenta",
		"2", "S001", "abc",
		"2", "missing", "50",
		"1", "", "Nadie", "",
		"4", "nobody",
		"0",
	}, "\n")+"\n")

	assert.Contains(t, out, `Unknown option "9".`)
	assert.Contains(t, out, `Error: "ochenta" is not a number`)
	assert.Contains(t, out, `Error: "abc" is not a number`)
	assert.Contains(t, out, "Error: student not found")
	assert.Contains(t, out, "Error: student id and name are required")
	assert.Contains(t, out, `No student with ID "nobody".`)

	course, err := f.book.Course()
	require.NoError(t, err)
	assert.Equal(t, 4, course.Len())
}

func TestMenuExitsOnEOFAndSaves(t *testing.T) {
	f := newMenuFixture(t)

	out := runMenu(t, f, "1\nS007\nTomás")
	assert.Contains(t, out, "Goodbye.")

	reloaded, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Len())
}

func TestMenuExport(t *testing.T) {
	f := newMenuFixture(t)

	out := runMenu(t, f, "5\ncsv\n5\ndocx\n0\n")
	assert.Contains(t, out, "Report written to "+f.exports)
	assert.Contains(t, out, `Error: unsupported export format "docx"`)

	entries, err := os.ReadDir(f.exports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".csv"))
}

func TestMenuWithoutExporter(t *testing.T) {
	f := newMenuFixture(t)
	var out bytes.Buffer
	menu := NewMenu(f.book, nil, strings.NewReader("5\n6\n0\n"), &out, nil, MenuConfig{})
	require.NoError(t, menu.Run(context.Background()))
	assert.Contains(t, out.String(), "Exports are not available.")
	assert.Contains(t, out.String(), "Course saved.")
}
