package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

// SearchService mediates catalog queries and recalls past ones. Each
// completed query replaces the result set wholesale on the caller's side;
// overlapping queries are not coordinated, the last response to arrive
// wins.
type SearchService struct {
	repo    domain.CatalogRepository
	history domain.SearchHistory
	logger  *slog.Logger

	mu        sync.Mutex
	lastQuery string
}

// NewSearchService creates a new search service. history may be nil, in
// which case query recall is disabled.
func NewSearchService(repo domain.CatalogRepository, history domain.SearchHistory, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		repo:    repo,
		history: history,
		logger:  logger,
	}
}

// Search issues a catalog query and returns the candidate sources. The
// query is recorded for recall regardless of the outcome; the catalog
// round-trip can take a while, so recording never waits for it.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if query == "" {
		return nil, nil
	}

	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.RecordSearch(query); err != nil {
			s.logger.Warn("failed to record search query", "query", query, "error", err)
		}
	}

	s.logger.Debug("searching catalog", "query", query)
	results, err := s.repo.Search(ctx, query)
	if err != nil {
		s.logger.Warn("catalog search failed", "query", query, "error", err)
		return nil, err
	}

	s.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

// LastQuery returns the most recently submitted query
func (s *SearchService) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// SuggestQueries returns past queries matching the given partial input,
// best match first. With empty input it returns recent queries as-is.
func (s *SearchService) SuggestQueries(partial string, limit int) []string {
	if s.history == nil {
		return nil
	}

	recent, err := s.history.RecentSearches(limit * 4)
	if err != nil {
		s.logger.Warn("failed to load search history", "error", err)
		return nil
	}

	if partial == "" {
		if len(recent) > limit {
			recent = recent[:limit]
		}
		return recent
	}

	ranks := fuzzy.RankFindFold(partial, recent)
	// Sort by distance (lower is better)
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Distance < ranks[j].Distance
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	suggestions := make([]string, len(ranks))
	for i, rank := range ranks {
		suggestions[i] = rank.Target
	}
	return suggestions
}
