package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	appErrors "github.com/noah-isme/sma-gradebook/pkg/errors"
)

func buildRoster(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { require.NoError(t, f.Close()) }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestRosterServiceImportXLSX(t *testing.T) {
	svc, _ := openedGradebook(t)
	roster := NewRosterService(svc, zaptest.NewLogger(t))

	buf := buildRoster(t, [][]interface{}{
		{"id", "nombre", "nota1", "nota2"},
		{"R1", "Marta", 90, "85,5"},
		{"", "", "", ""},
		{"R2", "", 70},
		{"12", "Jorge", "abc", 60},
	})

	result, err := roster.ImportXLSX(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, 4, result.Issues[0].Row)
	assert.Equal(t, 5, result.Issues[1].Row)
	assert.Contains(t, result.Issues[1].Reason, "column C")

	marta, err := svc.Student(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 85.5}, marta.Grades)

	jorge, err := svc.Student(context.Background(), "12")
	require.NoError(t, err)
	assert.True(t, jorge.ID.IsNumeric())
	assert.Equal(t, []float64{60}, jorge.Grades)
}

func TestRosterServiceReimportAddsNothing(t *testing.T) {
	svc, _ := openedGradebook(t)
	roster := NewRosterService(svc, zaptest.NewLogger(t))
	rows := [][]interface{}{
		{"id", "nombre", "nota1"},
		{"R1", "Marta", 90},
		{"A1", "Ana", 70},
		{"A1", "Otra Ana", 70},
	}

	first, err := roster.ImportXLSX(context.Background(), buildRoster(t, rows))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 1, first.AlreadyEnrolled)

	second, err := roster.ImportXLSX(context.Background(), buildRoster(t, rows))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 3, second.AlreadyEnrolled)

	course, err := svc.Course()
	require.NoError(t, err)
	assert.Equal(t, 4, course.Len())
}

func TestGradebookServiceEnrolledMatchesStoredKind(t *testing.T) {
	svc, _ := openedGradebook(t)

	ok, err := svc.Enrolled(context.Background(), "7", "Luis")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Enrolled(context.Background(), "7", "Luisa")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRosterServiceRejectsNonSpreadsheet(t *testing.T) {
	svc, _ := openedGradebook(t)
	roster := NewRosterService(svc, zaptest.NewLogger(t))

	_, err := roster.ImportXLSX(context.Background(), bytes.NewBufferString("not a zip"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterServiceStopsWithoutCourse(t *testing.T) {
	svc := newGradebookForTest(t, &courseStoreStub{})
	roster := NewRosterService(svc, zaptest.NewLogger(t))

	buf := buildRoster(t, [][]interface{}{{"id", "nombre"}, {"R1", "Marta"}})
	result, err := roster.ImportXLSX(context.Background(), buf)
	assert.ErrorIs(t, err, appErrors.ErrCourseNotLoaded)
	assert.Equal(t, 0, result.Imported)
}
