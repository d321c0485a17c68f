package models

// DefaultPassThreshold applies when a course is created without an explicit threshold.
const DefaultPassThreshold = 60.0

// InvalidCourseName marks the sentinel produced by a failed decode.
const InvalidCourseName = "INVALID_CURSO_NAME"

// Course groups students under a passing threshold. Approved and failed lists are
// derived on every call from the current threshold.
type Course struct {
	Name          string
	PassThreshold float64

	students []*Student
	problem  error
}

// CourseRecord is the persisted shape of a course document.
type CourseRecord struct {
	Name          string          `json:"nombreCurso"`
	PassThreshold float64         `json:"notaMinimaAprobacion"`
	Students      []StudentRecord `json:"estudiantes"`
}

// NewCourse creates an empty course.
func NewCourse(name string, passThreshold float64) *Course {
	return &Course{Name: name, PassThreshold: passThreshold, students: []*Student{}}
}

func invalidCourse(problem error) *Course {
	return &Course{Name: InvalidCourseName, students: []*Student{}, problem: problem}
}

// AddStudent appends a student. Duplicate IDs are not reconciled.
func (c *Course) AddStudent(s *Student) {
	if s == nil {
		return
	}
	c.students = append(c.students, s)
}

// Students returns the enrolled students in insertion order.
func (c *Course) Students() []*Student {
	out := make([]*Student, len(c.students))
	copy(out, c.students)
	return out
}

// Len returns the number of enrolled students.
func (c *Course) Len() int {
	return len(c.students)
}

// FindStudent returns the first student with the given ID. An exact match wins; otherwise
// the first student whose ID matches across kinds is returned.
func (c *Course) FindStudent(id StudentID) (*Student, bool) {
	for _, s := range c.students {
		if s.ID.Equal(id) {
			return s, true
		}
	}
	for _, s := range c.students {
		if s.ID.Matches(id) {
			return s, true
		}
	}
	return nil, false
}

// Average is the mean of the students' individual averages.
func (c *Course) Average() float64 {
	items := make([]Averager, len(c.students))
	for i, s := range c.students {
		items[i] = s
	}
	return MeanOfAverages(items)
}

// Approved lists students whose average reaches the pass threshold.
func (c *Course) Approved() []*Student {
	return c.filter(true)
}

// Failed lists students below the pass threshold.
func (c *Course) Failed() []*Student {
	return c.filter(false)
}

func (c *Course) filter(passing bool) []*Student {
	out := make([]*Student, 0, len(c.students))
	for _, s := range c.students {
		if s.IsPassing(c.PassThreshold) == passing {
			out = append(out, s)
		}
	}
	return out
}

// InvalidStudents lists the sentinel students produced while decoding.
func (c *Course) InvalidStudents() []*Student {
	var out []*Student
	for _, s := range c.students {
		if s.Invalid() {
			out = append(out, s)
		}
	}
	return out
}

// Invalid reports whether the course is a decode sentinel.
func (c *Course) Invalid() bool {
	return c.problem != nil
}

// Problem returns the reason a sentinel was produced, nil for valid courses.
func (c *Course) Problem() error {
	return c.problem
}

// Serialize returns the persisted record for the course and its students.
func (c *Course) Serialize() CourseRecord {
	students := make([]StudentRecord, len(c.students))
	for i, s := range c.students {
		students[i] = s.Serialize()
	}
	return CourseRecord{Name: c.Name, PassThreshold: c.PassThreshold, Students: students}
}
