package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/service"
	"github.com/Bytekeeper/xdccmon/internal/store"
)

// Command factories for async operations

// PollCmd fetches one snapshot from the daemon and reconciles it
func PollCmd(svc *service.TransferService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		published, removed, err := svc.Refresh(ctx)
		if err != nil {
			return PollFailedMsg{Err: err}
		}
		return TransfersMsg{Records: published, Removed: removed}
	}
}

// SearchCmd issues a catalog query
func SearchCmd(svc *service.SearchService, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		results, err := svc.Search(ctx, query)
		if err != nil {
			return ErrMsg{Err: err, Context: "search failed"}
		}
		return SearchResultsMsg{Results: results, Query: query}
	}
}

// StartTransferCmd asks the daemon to request a new transfer
func StartTransferCmd(svc *service.TransferService, req domain.TransferRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := svc.Start(ctx, req)
		return TransferStartedMsg{FileName: req.FileName, Err: err}
	}
}

// AbortTransferCmd removes an in-flight transfer by id
func AbortTransferCmd(svc *service.TransferService, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := svc.Abort(ctx, id)
		return TransferAbortedMsg{ID: id, Err: err}
	}
}

// WaitForLogEventCmd blocks on the stream channel for the next event.
// The handler re-arms it after every delivery, one read per command.
func WaitForLogEventCmd(events <-chan domain.LogEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return LogEventMsg{Event: ev, OK: ok}
	}
}

// RecordCompletedCmd stores records that left the daemon's active set
func RecordCompletedCmd(history *store.HistoryStore, removed []domain.TransferRecord) tea.Cmd {
	if history == nil || len(removed) == 0 {
		return nil
	}
	return func() tea.Msg {
		for _, rec := range removed {
			if err := history.RecordCompleted(rec); err != nil {
				return nil
			}
		}
		return nil
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
