package tui

import (
	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// Message types for the TUI

// ErrMsg represents a user-visible error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// TransfersMsg carries one reconciled snapshot. Records replaces the
// visible transfer set wholesale; Removed holds the records that left
// the daemon's set since the previous snapshot.
type TransfersMsg struct {
	Records []domain.TransferRecord
	Removed []domain.TransferRecord
}

// PollFailedMsg signals a failed snapshot fetch. The visible transfer
// set stays as-is; the failure is logged, not shown.
type PollFailedMsg struct {
	Err error
}

// SearchResultsMsg signals that catalog results arrived. Overlapping
// searches are not coordinated: a stale response is discarded by
// comparing Query against the most recently submitted one.
type SearchResultsMsg struct {
	Results []domain.SearchResult
	Query   string
}

// TransferStartedMsg signals completion of a start request. A follow-up
// snapshot fetch is scheduled whether or not the request succeeded.
type TransferStartedMsg struct {
	FileName string
	Err      error
}

// TransferAbortedMsg signals completion of an abort request. A follow-up
// snapshot fetch is scheduled whether or not the request succeeded.
type TransferAbortedMsg struct {
	ID  int64
	Err error
}

// LogEventMsg carries one event from the daemon's live stream. OK is
// false once the stream channel closes.
type LogEventMsg struct {
	Event domain.LogEvent
	OK    bool
}

// TickMsg drives the periodic snapshot poll
type TickMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
