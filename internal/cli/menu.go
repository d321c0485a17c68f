package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/models"
	"github.com/noah-isme/sma-gradebook/internal/service"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
)

type gradebook interface {
	Course() (*models.Course, error)
	AddStudent(ctx context.Context, req service.AddStudentRequest) (*models.Student, error)
	AddGrade(ctx context.Context, req service.AddGradeRequest) (*models.Student, error)
	Save(ctx context.Context) error
}

type courseExporter interface {
	Export(ctx context.Context, format models.ExportFormat, ref string) (*service.ExportResult, error)
}

type state int

const (
	stateMainMenu state = iota
	stateAddStudent
	stateAddGrade
	stateShowResults
	stateShowStudent
	stateExport
	stateSave
	stateExit
)

var menuOptions = []struct {
	key   string
	label string
	next  state
}{
	{"1", "Add student", stateAddStudent},
	{"2", "Add grade", stateAddGrade},
	{"3", "Show results", stateShowResults},
	{"4", "Show student", stateShowStudent},
	{"5", "Export report", stateExport},
	{"6", "Save", stateSave},
	{"0", "Exit", stateExit},
}

// MenuConfig tunes the interactive menu.
type MenuConfig struct {
	// ExportDir is shown next to exported file names.
	ExportDir string
}

// Menu drives the interactive gradebook session over line-oriented input.
type Menu struct {
	book     gradebook
	exporter courseExporter
	in       *bufio.Scanner
	out      io.Writer
	logger   *zap.Logger
	cfg      MenuConfig
}

// NewMenu builds a menu reading commands from in and writing prompts to out.
// exporter may be nil, in which case exports are reported as unavailable.
func NewMenu(book gradebook, exporter courseExporter, in io.Reader, out io.Writer, logger *zap.Logger, cfg MenuConfig) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{
		book:     book,
		exporter: exporter,
		in:       bufio.NewScanner(in),
		out:      out,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run loops over menu states until the user exits, input ends or ctx is cancelled.
// The course is saved on the way out.
func (m *Menu) Run(ctx context.Context) error {
	handlers := map[state]func(context.Context) state{
		stateMainMenu:    m.mainMenu,
		stateAddStudent:  m.addStudent,
		stateAddGrade:    m.addGrade,
		stateShowResults: m.showResults,
		stateShowStudent: m.showStudent,
		stateExport:      m.export,
		stateSave:        m.save,
	}

	current := stateMainMenu
	for current != stateExit {
		if ctx.Err() != nil {
			break
		}
		current = handlers[current](ctx)
	}
	return m.exit(ctx)
}

func (m *Menu) mainMenu(_ context.Context) state {
	name := "no course loaded"
	if course, err := m.book.Course(); err == nil {
		name = course.Name
	}
	fmt.Fprintf(m.out, "\n--- Gradebook: %s ---\n", name)
	for _, opt := range menuOptions {
		fmt.Fprintf(m.out, "%s) %s\n", opt.key, opt.label)
	}

	choice, ok := m.prompt("Choose an option: ")
	if !ok {
		return stateExit
	}
	for _, opt := range menuOptions {
		if opt.key == choice {
			return opt.next
		}
	}
	fmt.Fprintf(m.out, "Unknown option %q.\n", choice)
	return stateMainMenu
}

func (m *Menu) addStudent(ctx context.Context) state {
	id, ok := m.prompt("Student ID: ")
	if !ok {
		return stateExit
	}
	name, ok := m.prompt("Name: ")
	if !ok {
		return stateExit
	}
	rawGrades, ok := m.prompt("Grades (comma or space separated, blank for none): ")
	if !ok {
		return stateExit
	}
	grades, err := parseGrades(rawGrades)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return stateMainMenu
	}

	student, err := m.book.AddStudent(ctx, service.AddStudentRequest{ID: id, Name: name, Grades: grades})
	if err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	fmt.Fprintf(m.out, "Student added: %s\n", student.Describe())
	return stateMainMenu
}

func (m *Menu) addGrade(ctx context.Context) state {
	id, ok := m.prompt("Student ID: ")
	if !ok {
		return stateExit
	}
	rawValue, ok := m.prompt("Grade: ")
	if !ok {
		return stateExit
	}
	value, err := parseGrade(rawValue)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return stateMainMenu
	}

	student, err := m.book.AddGrade(ctx, service.AddGradeRequest{StudentID: id, Value: &value})
	if err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	fmt.Fprintf(m.out, "Grade added: %s\n", student.Describe())
	return stateMainMenu
}

func (m *Menu) showResults(_ context.Context) state {
	course, err := m.book.Course()
	if err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	if err := RenderResults(m.out, course); err != nil {
		m.logger.Warn("render results", zap.Error(err))
	}
	return stateMainMenu
}

func (m *Menu) showStudent(_ context.Context) state {
	id, ok := m.prompt("Student ID: ")
	if !ok {
		return stateExit
	}
	course, err := m.book.Course()
	if err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	student, found := course.FindStudent(models.ParseStudentID(id))
	if !found {
		fmt.Fprintf(m.out, "No student with ID %q.\n", strings.TrimSpace(id))
		return stateMainMenu
	}
	status := statusFailed
	if student.IsPassing(course.PassThreshold) {
		status = statusApproved
	}
	fmt.Fprintf(m.out, "%s, Status: %s\n", student.Describe(), status)
	return stateMainMenu
}

func (m *Menu) export(ctx context.Context) state {
	if m.exporter == nil {
		fmt.Fprintln(m.out, "Exports are not available.")
		return stateMainMenu
	}
	raw, ok := m.prompt("Format (csv, pdf, xlsx): ")
	if !ok {
		return stateExit
	}
	format := models.ExportFormat(strings.ToLower(raw))
	result, err := m.exporter.Export(ctx, format, "")
	if err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	fmt.Fprintf(m.out, "Report written to %s\n", filepath.Join(m.cfg.ExportDir, result.RelativePath))
	return stateMainMenu
}

func (m *Menu) save(ctx context.Context) state {
	if err := m.book.Save(ctx); err != nil {
		m.reportError(err)
		return stateMainMenu
	}
	fmt.Fprintln(m.out, "Course saved.")
	return stateMainMenu
}

func (m *Menu) exit(ctx context.Context) error {
	err := m.book.Save(ctx)
	switch {
	case errors.Is(err, appErrors.ErrCourseNotLoaded):
		err = nil
	case err != nil:
		m.reportError(err)
	default:
		fmt.Fprintln(m.out, "Course saved.")
	}
	fmt.Fprintln(m.out, "Goodbye.")
	return err
}

// prompt reports false once input is exhausted.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			m.logger.Warn("read input", zap.Error(err))
		}
		fmt.Fprintln(m.out)
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) reportError(err error) {
	fmt.Fprintf(m.out, "Error: %s\n", appErrors.FromError(err).Message)
	m.logger.Debug("menu action failed", zap.Error(err))
}

func parseGrades(raw string) ([]float64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	grades := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseGrade(f)
		if err != nil {
			return nil, err
		}
		grades = append(grades, v)
	}
	return grades, nil
}

func parseGrade(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return v, nil
}
