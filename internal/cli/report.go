package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/noah-isme/sma-gradebook/internal/models"
)

const (
	statusApproved = "Approved"
	statusFailed   = "Failed"
)

// RenderResults writes the course results report: aggregates, one line per student,
// then the approved and failed rosters.
func RenderResults(w io.Writer, course *models.Course) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "--- Course results: %s ---\n", course.Name)
	fmt.Fprintf(bw, "Pass threshold: %s\n", strconv.FormatFloat(course.PassThreshold, 'f', -1, 64))
	fmt.Fprintf(bw, "Course average: %.2f\n", course.Average())

	fmt.Fprintln(bw, "\n--- Students ---")
	for _, s := range course.Students() {
		status := statusFailed
		if s.IsPassing(course.PassThreshold) {
			status = statusApproved
		}
		fmt.Fprintf(bw, "%s, Status: %s\n", s.Describe(), status)
	}

	fmt.Fprintln(bw, "\n--- Approved students ---")
	writeNames(bw, course.Approved(), "No approved students.")
	fmt.Fprintln(bw, "\n--- Failed students ---")
	writeNames(bw, course.Failed(), "No failed students.")
	fmt.Fprintln(bw, "-------------------------------------")

	return bw.Flush()
}

func writeNames(w io.Writer, students []*models.Student, none string) {
	if len(students) == 0 {
		fmt.Fprintln(w, none)
		return
	}
	for _, s := range students {
		fmt.Fprintln(w, s.Name)
	}
}
