package export

// Dataset defines tabular export content. Meta lines are rendered above the table by
// formats that support free text (PDF, XLSX) and skipped by CSV.
type Dataset struct {
	Title   string
	Meta    []string
	Headers []string
	Rows    []map[string]string
}
