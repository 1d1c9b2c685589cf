package domain

import (
	"encoding/json"
	"fmt"
)

// StatusKind distinguishes transfer status variants
type StatusKind int

const (
	StatusRequested StatusKind = iota
	StatusDelayed
	StatusSenderAbsent
	StatusConnecting
	StatusProgress
	StatusFailed
)

// String returns the status name as it appears on the wire
func (k StatusKind) String() string {
	switch k {
	case StatusRequested:
		return "Requested"
	case StatusDelayed:
		return "Delayed"
	case StatusSenderAbsent:
		return "SenderAbsent"
	case StatusConnecting:
		return "Connecting"
	case StatusProgress:
		return "Progress"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Progress holds byte counts for an actively transferring item.
// The feed does not guarantee Transferred <= FileSize.
type Progress struct {
	Transferred uint64 `json:"transferred"`
	FileSize    uint64 `json:"file_size"`
}

// TransferStatus is the tagged status variant reported by the daemon.
// Progress is only meaningful when Kind is StatusProgress, Reason only
// when Kind is StatusFailed.
type TransferStatus struct {
	Kind     StatusKind
	Progress Progress
	Reason   string
}

// progressWire mirrors the daemon's Progress payload. FileSize is optional
// on the wire (the daemon omits it when the sender never announced a size);
// null and 0 are interchangeable since a zero size is never reported.
type progressWire struct {
	Transferred uint64  `json:"transferred"`
	FileSize    *uint64 `json:"file_size"`
}

// MarshalJSON encodes the status in the daemon's externally tagged form:
// a bare string for unit variants, {"Progress": {...}} and {"Failed": "..."}
// for the payload-carrying ones.
func (s TransferStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusRequested, StatusDelayed, StatusSenderAbsent, StatusConnecting:
		return json.Marshal(s.Kind.String())
	case StatusProgress:
		wire := progressWire{Transferred: s.Progress.Transferred}
		if s.Progress.FileSize != 0 {
			size := s.Progress.FileSize
			wire.FileSize = &size
		}
		return json.Marshal(map[string]progressWire{"Progress": wire})
	case StatusFailed:
		return json.Marshal(map[string]string{"Failed": s.Reason})
	default:
		return nil, fmt.Errorf("cannot encode status kind %d", s.Kind)
	}
}

// UnmarshalJSON decodes either a bare variant name or a single-key object
// carrying the variant payload.
func (s *TransferStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case "Requested":
			s.Kind = StatusRequested
		case "Delayed":
			s.Kind = StatusDelayed
		case "SenderAbsent":
			s.Kind = StatusSenderAbsent
		case "Connecting":
			s.Kind = StatusConnecting
		default:
			return fmt.Errorf("unknown transfer status %q", name)
		}
		s.Progress = Progress{}
		s.Reason = ""
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("malformed transfer status: %w", err)
	}

	if raw, ok := tagged["Progress"]; ok {
		var wire progressWire
		if err := json.Unmarshal(raw, &wire); err != nil {
			return fmt.Errorf("malformed progress payload: %w", err)
		}
		s.Kind = StatusProgress
		s.Progress = Progress{Transferred: wire.Transferred}
		if wire.FileSize != nil {
			s.Progress.FileSize = *wire.FileSize
		}
		s.Reason = ""
		return nil
	}

	if raw, ok := tagged["Failed"]; ok {
		var reason string
		if err := json.Unmarshal(raw, &reason); err != nil {
			return fmt.Errorf("malformed failure reason: %w", err)
		}
		s.Kind = StatusFailed
		s.Progress = Progress{}
		s.Reason = reason
		return nil
	}

	return fmt.Errorf("unknown transfer status object with %d keys", len(tagged))
}

// TransferRecord is one transfer tracked by the daemon. ID is the
// correlation key across snapshots; FileName, Nick and Server never change
// for the life of the record.
type TransferRecord struct {
	ID       int64          `json:"id"`
	Server   string         `json:"server"`
	FileName string         `json:"fileName"`
	Nick     string         `json:"nick"`
	Status   TransferStatus `json:"status"`

	// Derived client-side from consecutive Progress snapshots; never sent
	// by the daemon. RateKnown is false until two such snapshots exist.
	RateBytesPerSec int64 `json:"-"`
	RateKnown       bool  `json:"-"`
}

// TransferRequest carries the fields needed to request a new transfer
type TransferRequest struct {
	Server   string `json:"server"`
	FileName string `json:"fileName"`
	Nick     string `json:"nick"`
	Command  string `json:"command"`
}
