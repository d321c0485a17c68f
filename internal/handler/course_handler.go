package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/middleware"
	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
	"github.com/noah-isme/sma-gradebook/pkg/response"
)

type courseReader interface {
	Document(ctx context.Context) (*models.CourseRecord, error)
	CachedSummary(ctx context.Context) (*dto.CourseSummary, bool, error)
	Student(ctx context.Context, id string) (*dto.StudentSummary, error)
}

// CourseHandler exposes the loaded course read-only.
type CourseHandler struct {
	course courseReader
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(course courseReader) *CourseHandler {
	return &CourseHandler{course: course}
}

// Document godoc
// @Summary Course document
// @Description Returns the course exactly as it is persisted.
// @Tags Course
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course [get]
func (h *CourseHandler) Document(c *gin.Context) {
	doc, err := h.course.Document(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// Summary godoc
// @Summary Course summary
// @Description Average, approved and failed students against the pass threshold.
// @Tags Course
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course/summary [get]
func (h *CourseHandler) Summary(c *gin.Context) {
	summary, hit, err := h.course.CachedSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// Student godoc
// @Summary Student detail
// @Tags Course
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course/students/{id} [get]
func (h *CourseHandler) Student(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student id required"))
		return
	}
	student, err := h.course.Student(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}
