package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxWebsites = "waps_websites"

// Meili indexes and searches websites via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the website
// index. The client starts unhealthy when the initial connection
// fails; a background monitor flips it back once Meili recovers.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxWebsites,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxWebsites, err)
	}

	index := m.client.Index(idxWebsites)
	filterable := []interface{}{"categories", "origin"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxWebsites, err)
	}
	searchable := []string{"title", "description", "origin"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxWebsites, err)
	}
	sortable := []string{"saveCount"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("search: update sortable attrs for %s: %v", idxWebsites, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the website index.
func (m *Meili) Search(query string, limit int) ([]WebsiteDoc, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.Index(idxWebsites).Search(query, &meili.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	docs := make([]WebsiteDoc, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		docs = append(docs, hitToDoc(hit))
	}
	return docs, nil
}

func hitToDoc(hit meili.Hit) WebsiteDoc {
	raw, err := json.Marshal(hit)
	if err != nil {
		return WebsiteDoc{}
	}
	var doc WebsiteDoc
	_ = json.Unmarshal(raw, &doc)
	return doc
}

// IndexWebsite adds or updates a website in the search index.
func (m *Meili) IndexWebsite(doc WebsiteDoc) error {
	_, err := m.client.Index(idxWebsites).AddDocuments([]WebsiteDoc{doc}, nil)
	return err
}

// IndexWebsites bulk-indexes websites.
func (m *Meili) IndexWebsites(docs []WebsiteDoc) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxWebsites).AddDocuments(docs, nil)
	return err
}

// DeleteWebsite removes a website from the search index.
func (m *Meili) DeleteWebsite(id string) error {
	_, err := m.client.Index(idxWebsites).DeleteDocument(id, nil)
	return err
}
