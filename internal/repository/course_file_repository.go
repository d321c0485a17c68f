package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/models"
)

// ErrCourseFileNotFound is returned by Load when no course document exists yet.
var ErrCourseFileNotFound = errors.New("course file not found")

// CourseFileRepository persists a single course as a JSON document on disk.
type CourseFileRepository struct {
	path   string
	logger *zap.Logger
}

// NewCourseFileRepository constructs a repository bound to the given file path.
func NewCourseFileRepository(path string, logger *zap.Logger) *CourseFileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseFileRepository{path: path, logger: logger}
}

// Path returns the location of the course document.
func (r *CourseFileRepository) Path() string {
	return r.path
}

// Load reads and decodes the course document. A structurally invalid document decodes to
// the sentinel course; callers check Invalid on the result.
func (r *CourseFileRepository) Load(ctx context.Context) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrCourseFileNotFound, err)
		}
		return nil, fmt.Errorf("read course file: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("parse course file %s: invalid JSON", r.path)
	}
	course := models.DecodeCourse(raw)
	r.logger.Debug("course loaded", zap.String("path", r.path), zap.String("course", course.Name), zap.Int("students", course.Len()))
	return course, nil
}

// Save writes the course document atomically by renaming a temp file into place.
func (r *CourseFileRepository) Save(ctx context.Context, course *models.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(course.Serialize(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare course directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp course file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write course file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close course file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace course file: %w", err)
	}
	r.logger.Debug("course saved", zap.String("path", r.path), zap.Int("students", course.Len()))
	return nil
}

// Delete removes the course document if present.
func (r *CourseFileRepository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete course file: %w", err)
	}
	return nil
}
