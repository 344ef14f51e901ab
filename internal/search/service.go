package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// a Postgres substring scan.
type Service struct {
	meili *Meili
	pgsub *PgSub
}

// NewService creates a search service. meili may be nil when
// Meilisearch is not configured.
func NewService(meili *Meili, pgsub *PgSub) *Service {
	return &Service{meili: meili, pgsub: pgsub}
}

// Search tries Meilisearch if healthy, otherwise the Postgres scan.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]WebsiteDoc, error) {
	if s.meili != nil && s.meili.Healthy() {
		docs, err := s.meili.Search(query, limit)
		if err == nil {
			return docs, nil
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}
	return s.pgsub.Search(ctx, query, limit)
}

// IndexWebsite pushes a website into Meilisearch. A miss is harmless:
// the Postgres fallback always sees the row.
func (s *Service) IndexWebsite(_ context.Context, doc WebsiteDoc) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.IndexWebsite(doc)
}

// ReindexAll bulk-loads the index, called at startup when Meilisearch
// is healthy.
func (s *Service) ReindexAll(docs []WebsiteDoc) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexWebsites(docs); err != nil {
			log.Printf("search: reindex websites: %v", err)
		}
	}()
}
