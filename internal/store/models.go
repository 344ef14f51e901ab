package store

import "time"

// Website is the canonical record for a distinct site. Exactly one row
// exists per canonical URL; metadata is patched in place on re-scan.
type Website struct {
	ID              string
	CanonicalURL    string
	Slug            string
	Origin          string
	Title           string
	Description     string
	Categories      []string
	FaviconURL      *string
	OgImageURL      *string
	SaveCount       int
	PublicSaveCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WebsitePatch carries the metadata fields an upsert overwrites.
// Slug is only applied when non-empty; nil FaviconURL/OgImageURL keep
// the stored values.
type WebsitePatch struct {
	Title       string
	Slug        string
	Description string
	Categories  []string
	FaviconURL  *string
	OgImageURL  *string
	Origin      string
}

type Board struct {
	ID        string
	OwnerKey  string
	Name      string
	Slug      string
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardItem links one board, one website, and the owning key. The
// store enforces at most one row per (owner_key, website_id).
type BoardItem struct {
	ID        string
	OwnerKey  string
	BoardID   string
	WebsiteID string
	CreatedAt time.Time
}

type WaitlistEntry struct {
	ID           string
	Email        string
	Name         string
	Source       string
	Ref          string
	ReferralCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
