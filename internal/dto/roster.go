package dto

// RosterRowIssue describes a spreadsheet row that was skipped or partially imported.
type RosterRowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RosterImportResult summarises an XLSX roster import. AlreadyEnrolled counts rows that
// match an enrolled student by ID and name.
type RosterImportResult struct {
	Sheet           string           `json:"sheet"`
	Imported        int              `json:"imported"`
	Skipped         int              `json:"skipped"`
	AlreadyEnrolled int              `json:"already_enrolled"`
	Issues          []RosterRowIssue `json:"issues,omitempty"`
}
