// Package view defines what a rendering consumer observes of a live table query.
package view

import (
	"slices"

	"github.com/kailas-cloud/livetable/internal/domain/literal"
)

// Status is the phase of a table view.
type Status string

// View phases.
const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// EmptyResultNotice is shown instead of an empty table when configured.
const EmptyResultNotice = "No results to show for table query."

// State is the three-way union loading | error(message) | ready(headings, values).
type State struct {
	status   Status
	err      string
	headings []string
	values   [][]literal.Literal
	version  uint64
}

// Loading is the state before the first evaluation completes.
func Loading() State { return State{status: StatusLoading} }

// Failed is the state after an evaluation error.
func Failed(message string) State { return State{status: StatusError, err: message} }

// Ready is the state after a successful evaluation.
func Ready(headings []string, values [][]literal.Literal) State {
	if values == nil {
		values = [][]literal.Literal{}
	}
	return State{status: StatusReady, headings: headings, values: values}
}

// AtVersion returns a copy stamped with the index version it was computed from.
func (s State) AtVersion(v uint64) State {
	s.version = v
	return s
}

// Status returns the phase.
func (s State) Status() Status { return s.status }

// Error returns the message of an error state.
func (s State) Error() string { return s.err }

// Headings returns the column headings of a ready state.
func (s State) Headings() []string { return slices.Clone(s.headings) }

// Values returns the rows of a ready state.
func (s State) Values() [][]literal.Literal {
	out := make([][]literal.Literal, len(s.values))
	for i, row := range s.values {
		out[i] = slices.Clone(row)
	}
	return out
}

// Rows returns the row count of a ready state.
func (s State) Rows() int { return len(s.values) }

// Version returns the index version the state was computed from; 0 when not computed.
func (s State) Version() uint64 { return s.version }

// Settings are the render-time options of the rendering layer.
type Settings struct {
	WarnOnEmptyResult bool
	TableIDColumnName string
}

// DefaultSettings mirrors the defaults of the host settings.
func DefaultSettings() Settings {
	return Settings{WarnOnEmptyResult: true, TableIDColumnName: "File"}
}

// Notice returns the non-fatal informational message for s, if any.
func (s Settings) Notice(st State) string {
	if s.WarnOnEmptyResult && st.status == StatusReady && len(st.values) == 0 {
		return EmptyResultNotice
	}
	return ""
}

// Fixed builds the state of a table whose contents are already known. No index is involved.
func Fixed(headings []string, values [][]literal.Literal) State {
	rows := make([][]literal.Literal, len(values))
	for i, row := range values {
		rows[i] = slices.Clone(row)
	}
	return Ready(slices.Clone(headings), rows)
}
