package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/models"
	"github.com/noah-isme/sma-gradebook/internal/repository"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
)

const summaryCacheKey = "summary"

type courseStore interface {
	Load(ctx context.Context) (*models.Course, error)
	Save(ctx context.Context, course *models.Course) error
	Path() string
}

// AddStudentRequest carries a new enrolment. ID text that parses as a number is stored as a numeric ID.
type AddStudentRequest struct {
	ID     string    `json:"id" validate:"required"`
	Name   string    `json:"name" validate:"required"`
	Grades []float64 `json:"grades"`
}

// AddGradeRequest appends a grade to the first student matching StudentID.
type AddGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	Value     *float64 `json:"value" validate:"required"`
}

// GradebookConfig controls how a missing course document is seeded.
type GradebookConfig struct {
	CourseName    string
	PassThreshold float64
	SeedDemo      bool
	CacheTTL      time.Duration
}

// GradebookService owns the loaded course and mediates every mutation and query on it.
type GradebookService struct {
	store     courseStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GradebookConfig

	mu     sync.RWMutex
	course *models.Course
	dirty  bool
}

// NewGradebookService constructs GradebookService.
func NewGradebookService(store courseStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GradebookConfig) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.CourseName) == "" {
		cfg.CourseName = "Curso"
	}
	return &GradebookService{
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Open loads the course document, seeding and saving a new one when none exists.
func (s *GradebookService) Open(ctx context.Context) (*models.Course, error) {
	course, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrCourseFileNotFound):
		s.logger.Info("course file not found, creating a new course", zap.String("path", s.store.Path()))
		course = s.seed()
		if err := s.store.Save(ctx, course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save new course")
		}
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	case course.Invalid():
		return nil, appErrors.Wrap(course.Problem(), appErrors.ErrInvalidCourse.Code, appErrors.ErrInvalidCourse.Status, appErrors.ErrInvalidCourse.Message)
	}

	for _, invalid := range course.InvalidStudents() {
		s.logger.Warn("course contains an invalid student record", zap.Error(invalid.Problem()))
	}

	s.mu.Lock()
	s.course = course
	s.dirty = false
	s.mu.Unlock()

	s.afterChange(ctx)
	s.logger.Info("course ready", zap.String("course", course.Name), zap.Int("students", course.Len()), zap.String("path", s.store.Path()))
	return course, nil
}

func (s *GradebookService) seed() *models.Course {
	if !s.cfg.SeedDemo {
		return models.NewCourse(s.cfg.CourseName, s.cfg.PassThreshold)
	}
	course := models.NewCourse(s.cfg.CourseName, s.cfg.PassThreshold)
	course.AddStudent(models.NewStudent(models.NewStringID("S001"), "Ana Pérez", 80, 90, 75, 85))
	course.AddStudent(models.NewStudent(models.NewStringID("S002"), "Luis Gómez", 50, 65, 55, 60))
	course.AddStudent(models.NewStudent(models.NewStringID("S003"), "Clara Kent", 95, 92, 98))
	course.AddStudent(models.NewStudent(models.NewStringID("S004"), "Pedro Paramo", 60, 70, 65))
	return course
}

// Course returns the loaded course.
func (s *GradebookService) Course() (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course == nil {
		return nil, appErrors.ErrCourseNotLoaded
	}
	return s.course, nil
}

// Dirty reports whether the course has unsaved changes.
func (s *GradebookService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Enrolled reports whether a student with the same ID and name is already in the course.
func (s *GradebookService) Enrolled(_ context.Context, id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course == nil {
		return false, appErrors.ErrCourseNotLoaded
	}
	target := models.ParseStudentID(id)
	name = strings.TrimSpace(name)
	for _, st := range s.course.Students() {
		if st.ID.Matches(target) && st.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// AddStudent validates and enrols a new student. Duplicate IDs are accepted.
func (s *GradebookService) AddStudent(ctx context.Context, req AddStudentRequest) (*models.Student, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student id and name are required")
	}
	for _, g := range req.Grades {
		if err := checkGrade(g); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	if s.course == nil {
		s.mu.Unlock()
		return nil, appErrors.ErrCourseNotLoaded
	}
	id := models.ParseStudentID(req.ID)
	if _, exists := s.course.FindStudent(id); exists {
		s.logger.Warn("student id already enrolled", zap.String("student_id", id.String()))
	}
	student := models.NewStudent(id, req.Name, req.Grades...)
	s.course.AddStudent(student)
	s.dirty = true
	s.mu.Unlock()

	s.afterChange(ctx)
	s.logger.Info("student added", zap.String("student_id", student.ID.String()), zap.Int("grades", len(req.Grades)))
	return student, nil
}

// AddGrade validates the value and appends it to the matching student.
func (s *GradebookService) AddGrade(ctx context.Context, req AddGradeRequest) (*models.Student, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student id and grade are required")
	}
	if err := checkGrade(*req.Value); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.course == nil {
		s.mu.Unlock()
		return nil, appErrors.ErrCourseNotLoaded
	}
	student, ok := s.course.FindStudent(models.ParseStudentID(req.StudentID))
	if !ok {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student.AddGrade(*req.Value)
	s.dirty = true
	s.mu.Unlock()

	s.afterChange(ctx)
	s.logger.Info("grade added", zap.String("student_id", student.ID.String()), zap.Float64("grade", *req.Value))
	return student, nil
}

// Student looks up a student by ID.
func (s *GradebookService) Student(ctx context.Context, id string) (*dto.StudentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course == nil {
		return nil, appErrors.ErrCourseNotLoaded
	}
	student, ok := s.course.FindStudent(models.ParseStudentID(id))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	summary := dto.NewStudentSummary(student, s.course.PassThreshold)
	return &summary, nil
}

// Document returns the course in its persisted shape.
func (s *GradebookService) Document(_ context.Context) (*models.CourseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course == nil {
		return nil, appErrors.ErrCourseNotLoaded
	}
	record := s.course.Serialize()
	return &record, nil
}

// Summary returns the aggregate course view, served from cache when enabled.
func (s *GradebookService) Summary(ctx context.Context) (*dto.CourseSummary, error) {
	summary, _, err := s.CachedSummary(ctx)
	return summary, err
}

// CachedSummary is Summary that also reports whether the cache served it.
func (s *GradebookService) CachedSummary(ctx context.Context) (*dto.CourseSummary, bool, error) {
	var cached dto.CourseSummary
	if hit, _ := s.cache.Get(ctx, summaryCacheKey, &cached); hit {
		return &cached, true, nil
	}

	s.mu.RLock()
	if s.course == nil {
		s.mu.RUnlock()
		return nil, false, appErrors.ErrCourseNotLoaded
	}
	summary := dto.NewCourseSummary(s.course)
	s.mu.RUnlock()

	_ = s.cache.Set(ctx, summaryCacheKey, summary, s.cfg.CacheTTL)
	return &summary, false, nil
}

// Save persists the course document.
func (s *GradebookService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.course == nil {
		return appErrors.ErrCourseNotLoaded
	}
	if err := s.store.Save(ctx, s.course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save course")
	}
	s.dirty = false
	s.logger.Info("course saved", zap.String("path", s.store.Path()), zap.Int("students", s.course.Len()))
	return nil
}

func (s *GradebookService) afterChange(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, summaryCacheKey+"*")
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course != nil {
		s.metrics.ObserveCourse(s.course.Len(), s.course.Average())
	}
}

// checkGrade rejects values the JSON document cannot represent. Range is not enforced.
func checkGrade(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return appErrors.Clone(appErrors.ErrValidation, "grade must be a finite number")
	}
	return nil
}
