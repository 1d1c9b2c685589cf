package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/log"
	"github.com/Bytekeeper/xdccmon/internal/service"
)

type stubTransferRepo struct{}

func (stubTransferRepo) ListTransfers(ctx context.Context) ([]domain.TransferRecord, error) {
	return nil, nil
}
func (stubTransferRepo) StartTransfer(ctx context.Context, req domain.TransferRequest) error {
	return nil
}
func (stubTransferRepo) AbortTransfer(ctx context.Context, id int64) error {
	return nil
}

type stubCatalog struct{}

func (stubCatalog) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return nil, nil
}

func newTestModel() Model {
	transferSvc := service.NewTransferService(stubTransferRepo{}, log.NullLogger())
	searchSvc := service.NewSearchService(stubCatalog{}, nil, log.NullLogger())
	events := make(chan domain.LogEvent, 1)
	return NewModel(transferSvc, searchSvc, service.NewEventLog(100), nil, events, time.Second)
}

func update(t *testing.T, m Model, msg interface{}) (Model, bool) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd != nil
}

// settle completes the initial fetch so no poll is pending
func settle(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, TransfersMsg{})
	if m.PollPending() {
		t.Fatal("poll still pending after snapshot arrival")
	}
	return m
}

func TestTickWhileFetchInFlightCoalesces(t *testing.T) {
	m := newTestModel() // initial fetch in flight

	m, _ = update(t, m, TickMsg{})
	if !m.pollInFlight || !m.pollQueued {
		t.Errorf("inFlight=%v queued=%v, want both true", m.pollInFlight, m.pollQueued)
	}

	// Further ticks collapse into the same queued fetch
	m, _ = update(t, m, TickMsg{})
	if !m.pollQueued {
		t.Error("queued fetch lost on repeat tick")
	}
}

func TestSnapshotArrivalStartsQueuedFetch(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, TickMsg{}) // queues a fetch behind the initial one

	m, gotCmd := update(t, m, TransfersMsg{})
	if !gotCmd {
		t.Fatal("no command issued for the queued fetch")
	}
	if !m.pollInFlight || m.pollQueued {
		t.Errorf("inFlight=%v queued=%v, want in flight only", m.pollInFlight, m.pollQueued)
	}
}

func TestSnapshotArrivalWithoutQueueGoesIdle(t *testing.T) {
	m := newTestModel()

	m, _ = update(t, m, TransfersMsg{})
	if m.PollPending() {
		t.Error("poll pending after snapshot with nothing queued")
	}
}

func TestStartCompletionSchedulesExtraFetch(t *testing.T) {
	m := settle(t, newTestModel())

	m, gotCmd := update(t, m, TransferStartedMsg{FileName: "dist.iso"})
	if !gotCmd {
		t.Fatal("no command issued after start completion")
	}
	if !m.pollInFlight {
		t.Error("no fetch in flight after start completion")
	}
	if m.StatusIsErr {
		t.Error("status marked as error for a successful start")
	}
}

func TestStartFailureStillSchedulesFetch(t *testing.T) {
	m := settle(t, newTestModel())

	m, gotCmd := update(t, m, TransferStartedMsg{FileName: "dist.iso", Err: errors.New("boom")})
	if !gotCmd || !m.pollInFlight {
		t.Error("failed start did not schedule a follow-up fetch")
	}
	if !m.StatusIsErr {
		t.Error("failed start not reflected in status")
	}
}

func TestAbortCompletionSchedulesExtraFetch(t *testing.T) {
	m := settle(t, newTestModel())

	m, gotCmd := update(t, m, TransferAbortedMsg{ID: 3})
	if !gotCmd || !m.pollInFlight {
		t.Error("abort completion did not schedule a follow-up fetch")
	}
}

func TestAbortWhileFetchInFlightCoalesces(t *testing.T) {
	m := newTestModel() // initial fetch still in flight

	m, _ = update(t, m, TransferAbortedMsg{ID: 3})
	if !m.pollQueued {
		t.Error("abort completion during in-flight fetch did not queue one")
	}
}

func TestPollFailureKeepsLastSnapshot(t *testing.T) {
	m := newTestModel()
	records := []domain.TransferRecord{{ID: 1, FileName: "dist.iso"}}
	m, _ = update(t, m, TransfersMsg{Records: records})

	m, _ = update(t, m, PollFailedMsg{Err: errors.New("connection refused")})
	if len(m.Transfers) != 1 || m.Transfers[0].ID != 1 {
		t.Errorf("transfers = %+v, want last good snapshot", m.Transfers)
	}
	if m.PollPending() {
		t.Error("poll pending after failure with nothing queued")
	}
	if m.StatusMsg != "" {
		t.Errorf("poll failure surfaced to the user: %q", m.StatusMsg)
	}
}

func TestStaleSearchResultsDiscarded(t *testing.T) {
	m := settle(t, newTestModel())
	if _, err := m.SearchSvc.Search(context.Background(), "newer"); err != nil {
		t.Fatalf("Search: %v", err)
	}

	stale := SearchResultsMsg{
		Query:   "older",
		Results: []domain.SearchResult{{FileName: "old.iso"}},
	}
	m, _ = update(t, m, stale)
	if len(m.Results) != 0 {
		t.Errorf("stale results applied: %+v", m.Results)
	}

	fresh := SearchResultsMsg{
		Query:   "newer",
		Results: []domain.SearchResult{{FileName: "new.iso"}},
	}
	m, _ = update(t, m, fresh)
	if len(m.Results) != 1 || m.Results[0].FileName != "new.iso" {
		t.Errorf("results = %+v, want the fresh set", m.Results)
	}
}

func TestLogEventAppendsAndRearms(t *testing.T) {
	m := newTestModel()

	m, gotCmd := update(t, m, LogEventMsg{Event: domain.LogEvent{Message: "hello"}, OK: true})
	if m.EventLog.Len() != 1 {
		t.Errorf("event log len = %d, want 1", m.EventLog.Len())
	}
	if !gotCmd {
		t.Error("stream read not re-armed after delivery")
	}

	_, gotCmd = update(t, m, LogEventMsg{OK: false})
	if gotCmd {
		t.Error("stream read re-armed after channel close")
	}
}

func TestFilterNarrowsVisibleTransfers(t *testing.T) {
	m := settle(t, newTestModel())
	records := []domain.TransferRecord{
		{ID: 1, FileName: "ubuntu-24.04.iso", Nick: "bot1"},
		{ID: 2, FileName: "debian-13.iso", Nick: "bot2"},
	}
	m, _ = update(t, m, TransfersMsg{Records: records})

	m.filtering = true
	m.filterInput.SetValue("deb")

	visible := m.visibleTransfers()
	if len(visible) != 1 || visible[0].ID != 2 {
		t.Errorf("visible = %+v, want only the debian record", visible)
	}

	if rec := m.selectedTransfer(); rec == nil || rec.ID != 2 {
		t.Errorf("selected = %+v, want the filtered record", rec)
	}
}
