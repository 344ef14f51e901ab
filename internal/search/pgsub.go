package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgSub is the fallback searcher: a case-insensitive substring scan
// over the websites table, most saved first. If Postgres is down the
// whole app is down, so it never reports unhealthy.
type PgSub struct {
	db *sql.DB
}

func NewPgSub(db *sql.DB) *PgSub {
	return &PgSub{db: db}
}

func (p *PgSub) Search(ctx context.Context, query string, limit int) ([]WebsiteDoc, error) {
	if strings.TrimSpace(query) == "" {
		return []WebsiteDoc{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, slug, title, description, origin, categories, save_count
		FROM websites
		WHERE (title || ' ' || description || ' ' || origin) ILIKE '%' || $1 || '%'
		ORDER BY save_count DESC, created_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	docs := make([]WebsiteDoc, 0, limit)
	for rows.Next() {
		var doc WebsiteDoc
		var categoriesRaw []byte
		if err := rows.Scan(&doc.ID, &doc.Slug, &doc.Title, &doc.Description, &doc.Origin, &categoriesRaw, &doc.SaveCount); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		_ = json.Unmarshal(categoriesRaw, &doc.Categories)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return docs, nil
}
