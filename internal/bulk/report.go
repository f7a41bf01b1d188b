package bulk

import "fmt"

// RowError explains why one input row was not imported.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarises an import batch.
type Report struct {
	Created    int        `json:"created"`
	Skipped    int        `json:"skipped"`
	ErrorCount int        `json:"errorCount"`
	Errors     []RowError `json:"errors,omitempty"`
}

// Fail records a rejected row.
func (r *Report) Fail(row int, format string, args ...any) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RowError{Row: row, Reason: fmt.Sprintf(format, args...)})
}

// Skip records a row that was left out without being an error.
func (r *Report) Skip() {
	r.Skipped++
}

// Merge adds the counts of other to r.
func (r *Report) Merge(other Report) {
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.ErrorCount += other.ErrorCount
	r.Errors = append(r.Errors, other.Errors...)
}
