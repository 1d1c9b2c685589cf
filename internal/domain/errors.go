package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrDaemonOffline indicates the download daemon is unreachable
	ErrDaemonOffline = errors.New("download daemon is unreachable")

	// ErrTransferNotFound indicates the requested transfer does not exist
	ErrTransferNotFound = errors.New("transfer not found")
)
