package tui

import (
	"github.com/sahilm/fuzzy"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// transferSource adapts the transfer set for fuzzy matching on file
// name and sender nick.
type transferSource []domain.TransferRecord

func (s transferSource) String(i int) string { return s[i].FileName + " " + s[i].Nick }
func (s transferSource) Len() int            { return len(s) }

// filterTransfers narrows records to those fuzzy-matching the query,
// best match first. An empty query matches everything.
func filterTransfers(records []domain.TransferRecord, query string) []domain.TransferRecord {
	if query == "" {
		return records
	}
	matches := fuzzy.FindFrom(query, transferSource(records))
	out := make([]domain.TransferRecord, len(matches))
	for i, match := range matches {
		out[i] = records[match.Index]
	}
	return out
}
