package tui

import "github.com/Veraticus/merchctl/internal/export"

// exportDoneMsg reports the outcome of an export started from the view.
type exportDoneMsg struct {
	err    error
	result export.Result
}

// statusKind selects the style of the status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)
