package models

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// InvalidStudentID marks the sentinel produced by a failed decode.
	InvalidStudentID = "INVALID_ID"
	// InvalidStudentName marks the sentinel produced by a failed decode.
	InvalidStudentName = "INVALID_NAME"
)

// Student represents a learner enrolled in a course together with the grades recorded for them.
type Student struct {
	ID   StudentID
	Name string

	grades  []float64
	problem error
}

// StudentRecord is the persisted shape of a student.
type StudentRecord struct {
	ID     StudentID `json:"id"`
	Name   string    `json:"nombre"`
	Grades []float64 `json:"calificaciones"`
}

// NewStudent creates a student with an optional initial grade sequence.
func NewStudent(id StudentID, name string, grades ...float64) *Student {
	s := &Student{ID: id, Name: name, grades: make([]float64, 0, len(grades))}
	s.grades = append(s.grades, grades...)
	return s
}

func invalidStudent(problem error) *Student {
	return &Student{
		ID:      NewStringID(InvalidStudentID),
		Name:    InvalidStudentName,
		grades:  []float64{},
		problem: problem,
	}
}

// AddGrade appends a grade. Values are accepted as-is.
func (s *Student) AddGrade(value float64) {
	s.grades = append(s.grades, value)
}

// Grades returns a copy of the recorded grades in insertion order.
func (s *Student) Grades() []float64 {
	out := make([]float64, len(s.grades))
	copy(out, s.grades)
	return out
}

// Average is the arithmetic mean of the grades, 0 when there are none.
func (s *Student) Average() float64 {
	if len(s.grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range s.grades {
		sum += g
	}
	return sum / float64(len(s.grades))
}

// IsPassing reports whether the average reaches the threshold (inclusive).
func (s *Student) IsPassing(threshold float64) bool {
	return s.Average() >= threshold
}

// Invalid reports whether the student is a decode sentinel.
func (s *Student) Invalid() bool {
	return s.problem != nil
}

// Problem returns the reason a sentinel was produced, nil for valid students.
func (s *Student) Problem() error {
	return s.problem
}

// Describe renders a one-line human readable summary.
func (s *Student) Describe() string {
	parts := make([]string, len(s.grades))
	for i, g := range s.grades {
		parts[i] = strconv.FormatFloat(g, 'f', -1, 64)
	}
	return fmt.Sprintf("ID: %s, Name: %s, Grades: [%s], Average: %.2f",
		s.ID, s.Name, strings.Join(parts, ", "), s.Average())
}

// Serialize returns the persisted record for the student.
func (s *Student) Serialize() StudentRecord {
	return StudentRecord{ID: s.ID, Name: s.Name, Grades: s.Grades()}
}
