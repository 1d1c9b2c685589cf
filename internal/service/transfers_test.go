package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/log"
)

// fakeTransferRepo returns canned snapshots and records mutations
type fakeTransferRepo struct {
	snapshots [][]domain.TransferRecord
	calls     int
	err       error

	started []domain.TransferRequest
	aborted []int64
}

func (f *fakeTransferRepo) ListTransfers(ctx context.Context) ([]domain.TransferRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	snapshot := f.snapshots[f.calls]
	if f.calls < len(f.snapshots)-1 {
		f.calls++
	}
	return snapshot, nil
}

func (f *fakeTransferRepo) StartTransfer(ctx context.Context, req domain.TransferRequest) error {
	f.started = append(f.started, req)
	return f.err
}

func (f *fakeTransferRepo) AbortTransfer(ctx context.Context, id int64) error {
	f.aborted = append(f.aborted, id)
	return f.err
}

func progressRecord(id int64, transferred, fileSize uint64) domain.TransferRecord {
	return domain.TransferRecord{
		ID:       id,
		Server:   "irc.example.net",
		FileName: "dist.iso",
		Nick:     "bot",
		Status: domain.TransferStatus{
			Kind:     domain.StatusProgress,
			Progress: domain.Progress{Transferred: transferred, FileSize: fileSize},
		},
	}
}

func TestReconcileDerivesRateFromConsecutiveProgress(t *testing.T) {
	svc := NewTransferService(&fakeTransferRepo{}, log.NullLogger())

	published, _ := svc.Reconcile([]domain.TransferRecord{progressRecord(1, 1000, 5000)})
	if published[0].RateKnown {
		t.Error("rate known after a single snapshot")
	}

	published, _ = svc.Reconcile([]domain.TransferRecord{progressRecord(1, 4000, 5000)})
	if !published[0].RateKnown {
		t.Fatal("rate unknown after two consecutive Progress snapshots")
	}
	if published[0].RateBytesPerSec != 3000 {
		t.Errorf("rate = %d, want 3000", published[0].RateBytesPerSec)
	}
}

func TestReconcileNegativeDeltaUnclamped(t *testing.T) {
	svc := NewTransferService(&fakeTransferRepo{}, log.NullLogger())

	svc.Reconcile([]domain.TransferRecord{progressRecord(1, 4000, 5000)})
	published, _ := svc.Reconcile([]domain.TransferRecord{progressRecord(1, 1500, 5000)})

	if !published[0].RateKnown || published[0].RateBytesPerSec != -2500 {
		t.Errorf("rate = %d (known=%v), want -2500", published[0].RateBytesPerSec, published[0].RateKnown)
	}
}

func TestReconcileRateUndefinedAcrossStatusChange(t *testing.T) {
	svc := NewTransferService(&fakeTransferRepo{}, log.NullLogger())

	requested := progressRecord(1, 0, 0)
	requested.Status = domain.TransferStatus{Kind: domain.StatusRequested}

	svc.Reconcile([]domain.TransferRecord{requested})
	published, _ := svc.Reconcile([]domain.TransferRecord{progressRecord(1, 100, 5000)})
	if published[0].RateKnown {
		t.Error("rate known although previous status was not Progress")
	}

	// And again once the transfer fails mid-flight.
	failed := progressRecord(1, 0, 0)
	failed.Status = domain.TransferStatus{Kind: domain.StatusFailed, Reason: "boom"}
	published, _ = svc.Reconcile([]domain.TransferRecord{failed})
	if published[0].RateKnown {
		t.Error("rate known although incoming status is not Progress")
	}
}

func TestReconcileDropsAbsentRecords(t *testing.T) {
	svc := NewTransferService(&fakeTransferRepo{}, log.NullLogger())

	svc.Reconcile([]domain.TransferRecord{progressRecord(1, 10, 100), progressRecord(2, 20, 200)})
	published, removed := svc.Reconcile([]domain.TransferRecord{progressRecord(2, 30, 200)})

	if len(published) != 1 || published[0].ID != 2 {
		t.Errorf("published = %+v, want only id 2", published)
	}
	if len(removed) != 1 || removed[0].ID != 1 {
		t.Errorf("removed = %+v, want only id 1", removed)
	}
	if got := svc.Transfers(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Transfers() = %+v, want only id 2", got)
	}
}

func TestReconcileRateSurvivesSequentialTicks(t *testing.T) {
	svc := NewTransferService(&fakeTransferRepo{}, log.NullLogger())

	svc.Reconcile([]domain.TransferRecord{progressRecord(1, 100, 1000)})
	svc.Reconcile([]domain.TransferRecord{progressRecord(1, 250, 1000)})
	published, _ := svc.Reconcile([]domain.TransferRecord{progressRecord(1, 600, 1000)})

	// Rate is keyed off the last published snapshot, not the first.
	if published[0].RateBytesPerSec != 350 {
		t.Errorf("rate = %d, want 350", published[0].RateBytesPerSec)
	}
}

func TestRefreshKeepsStateOnFetchFailure(t *testing.T) {
	repo := &fakeTransferRepo{snapshots: [][]domain.TransferRecord{{progressRecord(1, 10, 100)}}}
	svc := NewTransferService(repo, log.NullLogger())

	if _, _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	repo.err = errors.New("connection refused")
	if _, _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh succeeded with failing repo")
	}

	// Prior published state stays visible unchanged.
	if got := svc.Transfers(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Transfers() after failed refresh = %+v", got)
	}
}

func TestStartAndAbortPassThrough(t *testing.T) {
	repo := &fakeTransferRepo{}
	svc := NewTransferService(repo, log.NullLogger())

	req := domain.TransferRequest{Server: "s", FileName: "f", Nick: "n", Command: "xdcc send #1"}
	if err := svc.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(repo.started) != 1 || repo.started[0] != req {
		t.Errorf("started = %+v", repo.started)
	}

	if err := svc.Abort(context.Background(), 9); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if len(repo.aborted) != 1 || repo.aborted[0] != 9 {
		t.Errorf("aborted = %+v", repo.aborted)
	}
}
