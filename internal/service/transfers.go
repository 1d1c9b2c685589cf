package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// TransferService maintains the published, rate-annotated view of all
// transfers. Each poll replaces the published set wholesale: records
// missing from a snapshot are dropped, never retained as stale.
type TransferService struct {
	repo   domain.TransferRepository
	logger *slog.Logger

	mu        sync.Mutex
	published []domain.TransferRecord
	prevByID  map[int64]domain.TransferRecord
}

// NewTransferService creates a new transfer service
func NewTransferService(repo domain.TransferRepository, logger *slog.Logger) *TransferService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferService{
		repo:     repo,
		logger:   logger,
		prevByID: make(map[int64]domain.TransferRecord),
	}
}

// Refresh fetches one snapshot from the daemon and publishes it. On fetch
// failure the previously published state is left untouched and the error
// is returned for logging only; no retry is scheduled here.
func (s *TransferService) Refresh(ctx context.Context) (published, removed []domain.TransferRecord, err error) {
	snapshot, err := s.repo.ListTransfers(ctx)
	if err != nil {
		s.logger.Warn("transfer poll failed, keeping previous snapshot", "error", err)
		return nil, nil, err
	}
	published, removed = s.Reconcile(snapshot)
	return published, removed, nil
}

// Reconcile diffs a snapshot against the most recently published one,
// derives per-record rates, and publishes the snapshot wholesale. Rates are
// always keyed off the last *published* snapshot, so they stay well-defined
// across any number of sequential polls.
//
// A record in Progress in both snapshots gets
// rate = new.transferred - old.transferred per poll interval; the delta is
// deliberately unclamped, a regressing feed yields a negative rate. Any
// other combination leaves the rate unknown for this tick. Records absent
// from the snapshot are returned in removed with their last published state.
func (s *TransferService) Reconcile(snapshot []domain.TransferRecord) (published, removed []domain.TransferRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextByID := make(map[int64]domain.TransferRecord, len(snapshot))
	published = make([]domain.TransferRecord, len(snapshot))
	for i, rec := range snapshot {
		if prev, ok := s.prevByID[rec.ID]; ok &&
			prev.Status.Kind == domain.StatusProgress &&
			rec.Status.Kind == domain.StatusProgress {
			rec.RateBytesPerSec = int64(rec.Status.Progress.Transferred) - int64(prev.Status.Progress.Transferred)
			rec.RateKnown = true
		}
		published[i] = rec
		nextByID[rec.ID] = rec
	}

	for id, prev := range s.prevByID {
		if _, ok := nextByID[id]; !ok {
			removed = append(removed, prev)
		}
	}

	s.published = published
	s.prevByID = nextByID
	return published, removed
}

// Transfers returns the currently published transfer set
func (s *TransferService) Transfers() []domain.TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

// Start asks the daemon to request a new transfer. Local state is never
// mutated optimistically; truth is re-derived from the next snapshot.
func (s *TransferService) Start(ctx context.Context, req domain.TransferRequest) error {
	if err := s.repo.StartTransfer(ctx, req); err != nil {
		s.logger.Warn("start transfer failed", "file", req.FileName, "nick", req.Nick, "error", err)
		return err
	}
	s.logger.Info("transfer requested", "file", req.FileName, "nick", req.Nick, "server", req.Server)
	return nil
}

// Abort removes an in-flight transfer by id
func (s *TransferService) Abort(ctx context.Context, id int64) error {
	if err := s.repo.AbortTransfer(ctx, id); err != nil {
		s.logger.Warn("abort transfer failed", "id", id, "error", err)
		return err
	}
	s.logger.Info("transfer aborted", "id", id)
	return nil
}
