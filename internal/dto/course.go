package dto

import "github.com/noah-isme/sma-gradebook/internal/models"

// StudentStatus labels a student's standing against the pass threshold.
type StudentStatus string

const (
	StatusApproved StudentStatus = "APPROVED"
	StatusFailed   StudentStatus = "FAILED"
)

// StudentSummary is a read model of one student with derived figures.
type StudentSummary struct {
	ID      models.StudentID `json:"id"`
	Name    string           `json:"name"`
	Grades  []float64        `json:"grades"`
	Average float64          `json:"average"`
	Status  StudentStatus    `json:"status"`
	Invalid bool             `json:"invalid,omitempty"`
}

// CourseSummary is the aggregate view rendered by the menu, the API and exports.
type CourseSummary struct {
	Name          string           `json:"name"`
	PassThreshold float64          `json:"pass_threshold"`
	Average       float64          `json:"average"`
	StudentCount  int              `json:"student_count"`
	InvalidCount  int              `json:"invalid_count"`
	Students      []StudentSummary `json:"students"`
	Approved      []StudentSummary `json:"approved"`
	Failed        []StudentSummary `json:"failed"`
}

// NewStudentSummary derives the summary of s against threshold.
func NewStudentSummary(s *models.Student, threshold float64) StudentSummary {
	status := StatusFailed
	if s.IsPassing(threshold) {
		status = StatusApproved
	}
	return StudentSummary{
		ID:      s.ID,
		Name:    s.Name,
		Grades:  s.Grades(),
		Average: s.Average(),
		Status:  status,
		Invalid: s.Invalid(),
	}
}

// NewCourseSummary derives the summary of the whole course.
func NewCourseSummary(c *models.Course) CourseSummary {
	summary := CourseSummary{
		Name:          c.Name,
		PassThreshold: c.PassThreshold,
		Average:       c.Average(),
		StudentCount:  c.Len(),
		InvalidCount:  len(c.InvalidStudents()),
		Students:      make([]StudentSummary, 0, c.Len()),
		Approved:      []StudentSummary{},
		Failed:        []StudentSummary{},
	}
	for _, s := range c.Students() {
		summary.Students = append(summary.Students, NewStudentSummary(s, c.PassThreshold))
	}
	for _, s := range c.Approved() {
		summary.Approved = append(summary.Approved, NewStudentSummary(s, c.PassThreshold))
	}
	for _, s := range c.Failed() {
		summary.Failed = append(summary.Failed, NewStudentSummary(s, c.PassThreshold))
	}
	return summary
}
