package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidRecord is wrapped by the problem attached to every decode sentinel.
var ErrInvalidRecord = errors.New("invalid record")

const (
	fieldStudentID     = "id"
	fieldStudentName   = "nombre"
	fieldStudentGrades = "calificaciones"
	fieldCourseName    = "nombreCurso"
	fieldCourseMinimum = "notaMinimaAprobacion"
	fieldCourseRoster  = "estudiantes"
)

// DecodeStudent rebuilds a student from its persisted record. Malformed input never
// fails the caller: it yields the sentinel student and a logged warning instead.
func DecodeStudent(raw json.RawMessage) *Student {
	s, err := decodeStudent(raw)
	if err != nil {
		problem := fmt.Errorf("%w: student: %v", ErrInvalidRecord, err)
		zap.L().Warn("invalid student record", zap.Error(err), zap.ByteString("record", truncate(raw)))
		return invalidStudent(problem)
	}
	return s
}

func decodeStudent(raw json.RawMessage) (*Student, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return nil, err
	}

	idRaw, ok := present(fields, fieldStudentID)
	if !ok {
		return nil, fmt.Errorf("missing %q", fieldStudentID)
	}
	var id StudentID
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return nil, fmt.Errorf("field %q: %w", fieldStudentID, err)
	}

	nameRaw, ok := present(fields, fieldStudentName)
	if !ok {
		return nil, fmt.Errorf("missing %q", fieldStudentName)
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil {
		return nil, fmt.Errorf("field %q must be a string", fieldStudentName)
	}

	gradesRaw, ok := present(fields, fieldStudentGrades)
	if !ok || !isArray(gradesRaw) {
		return nil, fmt.Errorf("field %q must be an array", fieldStudentGrades)
	}
	var values []*float64
	if err := json.Unmarshal(gradesRaw, &values); err != nil {
		return nil, fmt.Errorf("field %q must contain only numbers", fieldStudentGrades)
	}
	grades := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("field %q must contain only numbers", fieldStudentGrades)
		}
		grades[i] = *v
	}

	return NewStudent(id, name, grades...), nil
}

// DecodeCourse rebuilds a course and its students from a persisted document. A malformed
// document yields the sentinel course; malformed students degrade to sentinel students
// without aborting the rest of the roster.
func DecodeCourse(raw json.RawMessage) *Course {
	c, err := decodeCourse(raw)
	if err != nil {
		problem := fmt.Errorf("%w: course: %v", ErrInvalidRecord, err)
		zap.L().Warn("invalid course record", zap.Error(err), zap.ByteString("record", truncate(raw)))
		return invalidCourse(problem)
	}
	return c
}

func decodeCourse(raw json.RawMessage) (*Course, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return nil, err
	}

	nameRaw, ok := fields[fieldCourseName]
	if !ok {
		return nil, fmt.Errorf("missing %q", fieldCourseName)
	}
	var name string
	if isNull(nameRaw) {
		zap.L().Warn("course name is null, using empty name")
	} else if err := json.Unmarshal(nameRaw, &name); err != nil {
		return nil, fmt.Errorf("field %q must be a string", fieldCourseName)
	}

	minRaw, ok := fields[fieldCourseMinimum]
	if !ok {
		return nil, fmt.Errorf("missing %q", fieldCourseMinimum)
	}
	var threshold float64
	if isNull(minRaw) {
		zap.L().Warn("pass threshold is null, using 0", zap.String("course", name))
	} else if err := json.Unmarshal(minRaw, &threshold); err != nil {
		return nil, fmt.Errorf("field %q must be a number", fieldCourseMinimum)
	}

	rosterRaw, ok := present(fields, fieldCourseRoster)
	if !ok || !isArray(rosterRaw) {
		return nil, fmt.Errorf("field %q must be an array", fieldCourseRoster)
	}
	var roster []json.RawMessage
	if err := json.Unmarshal(rosterRaw, &roster); err != nil {
		return nil, fmt.Errorf("field %q: %w", fieldCourseRoster, err)
	}

	course := NewCourse(name, threshold)
	for _, item := range roster {
		course.AddStudent(DecodeStudent(item))
	}
	return course, nil
}

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("record must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return fields, nil
}

// present treats a missing key and an explicit null the same way. Student fields use it;
// a null on a course scalar is tolerated instead.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func truncate(raw json.RawMessage) []byte {
	const limit = 256
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit]
}
