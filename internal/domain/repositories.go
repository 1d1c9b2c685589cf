package domain

import (
	"context"
)

// TransferRepository provides access to the daemon's transfer set
type TransferRepository interface {
	// ListTransfers returns the full current transfer set (one snapshot)
	ListTransfers(ctx context.Context) ([]TransferRecord, error)

	// StartTransfer asks the daemon to request a new transfer
	StartTransfer(ctx context.Context, req TransferRequest) error

	// AbortTransfer removes an in-flight transfer by id
	AbortTransfer(ctx context.Context, id int64) error
}

// CatalogRepository provides search against the remote catalog
type CatalogRepository interface {
	// Search issues a catalog query and returns the candidate sources
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SearchHistory records past catalog queries for recall across sessions
type SearchHistory interface {
	// RecordSearch stores one submitted query
	RecordSearch(query string) error

	// RecentSearches returns past queries, newest first, deduplicated
	RecentSearches(limit int) ([]string, error)
}
