package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gradebook/internal/dto"
	"github.com/noah-isme/sma-gradebook/internal/models"
	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
)

type studentEnroller interface {
	Enrolled(ctx context.Context, id, name string) (bool, error)
	AddStudent(ctx context.Context, req AddStudentRequest) (*models.Student, error)
}

// RosterService imports students from spreadsheets. The first sheet is read, the first
// row is a header, column A holds the ID, column B the name and later columns grades.
type RosterService struct {
	gradebook studentEnroller
	logger    *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(gradebook studentEnroller, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{gradebook: gradebook, logger: logger}
}

// ImportXLSX reads an XLSX stream and enrols every usable row. Rows whose ID and name are
// already enrolled are counted as such and left alone, so importing the same roster twice
// adds nothing.
func (s *RosterService) ImportXLSX(ctx context.Context, r io.Reader) (*dto.RosterImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to open roster spreadsheet")
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close roster spreadsheet", zap.Error(err))
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read roster rows")
	}

	result := &dto.RosterImportResult{Sheet: sheet}
	for i, row := range rows {
		if i == 0 || isBlankRow(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rowNumber := i + 1
		req, issues := parseRosterRow(row)
		for _, reason := range issues {
			result.Issues = append(result.Issues, dto.RosterRowIssue{Row: rowNumber, Reason: reason})
		}
		if req == nil {
			result.Skipped++
			s.logger.Debug("skipping roster row", zap.Int("row", rowNumber))
			continue
		}
		enrolled, err := s.gradebook.Enrolled(ctx, req.ID, req.Name)
		if err != nil {
			return result, err
		}
		if enrolled {
			result.AlreadyEnrolled++
			s.logger.Debug("roster row already enrolled", zap.Int("row", rowNumber), zap.String("student_id", req.ID))
			continue
		}
		if _, err := s.gradebook.AddStudent(ctx, *req); err != nil {
			if errors.Is(err, appErrors.ErrCourseNotLoaded) {
				return result, err
			}
			result.Skipped++
			result.Issues = append(result.Issues, dto.RosterRowIssue{Row: rowNumber, Reason: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("roster imported", zap.String("sheet", sheet), zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped), zap.Int("already_enrolled", result.AlreadyEnrolled))
	return result, nil
}

func parseRosterRow(row []string) (*AddStudentRequest, []string) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	id, name := cell(0), cell(1)
	if id == "" || name == "" {
		return nil, []string{"missing id or name"}
	}

	var issues []string
	req := &AddStudentRequest{ID: id, Name: name}
	for col := 2; col < len(row); col++ {
		raw := cell(col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || checkGrade(v) != nil {
			colName, _ := excelize.ColumnNumberToName(col + 1)
			issues = append(issues, fmt.Sprintf("column %s: %q is not a number", colName, raw))
			continue
		}
		req.Grades = append(req.Grades, v)
	}
	return req, issues
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
