package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const websiteColumns = `id, canonical_url, slug, origin, title, description, categories, COALESCE(favicon_url, ''), COALESCE(og_image_url, ''), save_count, public_save_count, created_at, updated_at`

func scanWebsite(row interface{ Scan(...any) error }) (Website, error) {
	var w Website
	var categoriesRaw []byte
	var favicon, ogImage string
	if err := row.Scan(
		&w.ID,
		&w.CanonicalURL,
		&w.Slug,
		&w.Origin,
		&w.Title,
		&w.Description,
		&categoriesRaw,
		&favicon,
		&ogImage,
		&w.SaveCount,
		&w.PublicSaveCount,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return Website{}, err
	}
	_ = json.Unmarshal(categoriesRaw, &w.Categories)
	if favicon != "" {
		w.FaviconURL = &favicon
	}
	if ogImage != "" {
		w.OgImageURL = &ogImage
	}
	return w, nil
}

func encodeCategories(categories []string) (string, error) {
	if categories == nil {
		categories = []string{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}
	return string(encoded), nil
}

func (s *PostgresStore) GetWebsite(ctx context.Context, websiteID string) (*Website, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+websiteColumns+` FROM websites WHERE id=$1`, websiteID)
	w, err := scanWebsite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) GetWebsiteByCanonicalURL(ctx context.Context, canonicalURL string) (*Website, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+websiteColumns+` FROM websites WHERE canonical_url=$1`, canonicalURL)
	w, err := scanWebsite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get website by canonical url: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) GetWebsiteBySlug(ctx context.Context, slug string) (*Website, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+websiteColumns+` FROM websites WHERE slug=$1`, slug)
	w, err := scanWebsite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get website by slug: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) InsertWebsite(ctx context.Context, w Website) error {
	categories, err := encodeCategories(w.Categories)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO websites (id, canonical_url, slug, origin, title, description, categories, favicon_url, og_image_url, save_count, public_save_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, NULLIF($8, ''), NULLIF($9, ''), 0, 0)
	`, w.ID, w.CanonicalURL, w.Slug, w.Origin, w.Title, w.Description, categories, derefOrEmpty(w.FaviconURL), derefOrEmpty(w.OgImageURL))
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

// PatchWebsiteMetadata overwrites scanned metadata in place. The slug is
// kept when the patch carries an empty one; favicon/og image keep their
// stored values when the patch carries nil. Counters are untouched.
func (s *PostgresStore) PatchWebsiteMetadata(ctx context.Context, websiteID string, patch WebsitePatch) error {
	categories, err := encodeCategories(patch.Categories)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE websites
		SET title=$2,
			slug=CASE WHEN $3 = '' THEN slug ELSE $3 END,
			description=$4,
			categories=$5::jsonb,
			favicon_url=COALESCE(NULLIF($6, ''), favicon_url),
			og_image_url=COALESCE(NULLIF($7, ''), og_image_url),
			origin=$8,
			updated_at=NOW()
		WHERE id=$1
	`, websiteID, patch.Title, patch.Slug, patch.Description, categories, derefOrEmpty(patch.FaviconURL), derefOrEmpty(patch.OgImageURL), patch.Origin)
	if err != nil {
		return fmt.Errorf("patch website metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateWebsiteFavicon(ctx context.Context, websiteID, faviconURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE websites SET favicon_url=$2, updated_at=NOW() WHERE id=$1
	`, websiteID, faviconURL)
	if err != nil {
		return fmt.Errorf("update website favicon: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateWebsiteOgImage(ctx context.Context, websiteID, ogImageURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE websites SET og_image_url=$2, updated_at=NOW() WHERE id=$1
	`, websiteID, ogImageURL)
	if err != nil {
		return fmt.Errorf("update website og image: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWebsiteIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM websites ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list website ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan website id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate website ids: %w", err)
	}
	return ids, nil
}

// ListWebsites returns websites matching an optional case-insensitive
// substring over title+description+origin, filtered to a minimum save
// count, ordered by recency or popularity with the stable tie-breaks
// (recent: created_at desc, title asc; popular: save_count desc,
// created_at desc, title asc).
func (s *PostgresStore) ListWebsites(ctx context.Context, search, sortOrder string, minSaveCount, limit int) ([]Website, error) {
	order := `save_count DESC, created_at DESC, title ASC`
	if sortOrder == "recent" {
		order = `created_at DESC, title ASC`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+websiteColumns+`
		FROM websites
		WHERE save_count >= $1
		  AND ($2='' OR (title || ' ' || description || ' ' || origin) ILIKE '%' || $2 || '%')
		ORDER BY `+order+`
		LIMIT $3
	`, minSaveCount, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	return collectWebsites(rows)
}

// ListWebsitesBySaveCount returns the feed candidate set: every website
// matching the search filter, most-saved first.
func (s *PostgresStore) ListWebsitesBySaveCount(ctx context.Context, search string) ([]Website, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+websiteColumns+`
		FROM websites
		WHERE ($1='' OR (title || ' ' || description || ' ' || origin) ILIKE '%' || $1 || '%')
		ORDER BY save_count DESC, created_at DESC
	`, search)
	if err != nil {
		return nil, fmt.Errorf("list websites by save count: %w", err)
	}
	return collectWebsites(rows)
}

func (s *PostgresStore) ListWebsitesByPublicSaveCount(ctx context.Context) ([]Website, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+websiteColumns+`
		FROM websites
		ORDER BY public_save_count DESC, save_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list websites by public save count: %w", err)
	}
	return collectWebsites(rows)
}

func collectWebsites(rows *sql.Rows) ([]Website, error) {
	defer rows.Close()
	items := make([]Website, 0)
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate websites: %w", err)
	}
	return items, nil
}

// ApplyWebsiteCounters applies a membership delta to the denormalized
// counters in a single statement. Both counters floor at zero.
func (s *PostgresStore) ApplyWebsiteCounters(ctx context.Context, websiteID string, delta, publicDelta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE websites
		SET save_count=GREATEST(0, save_count + $2),
			public_save_count=GREATEST(0, public_save_count + $3),
			updated_at=NOW()
		WHERE id=$1
	`, websiteID, delta, publicDelta)
	if err != nil {
		return fmt.Errorf("apply website counters: %w", err)
	}
	return nil
}

// CountPublicOwners recomputes the distinct-owner public save count for
// a website from the membership rows, ignoring the cached counter.
func (s *PostgresStore) CountPublicOwners(ctx context.Context, websiteID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT b.owner_key)
		FROM board_items bi
		JOIN boards b ON b.id = bi.board_id
		WHERE bi.website_id=$1 AND b.is_public
	`, websiteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count public owners: %w", err)
	}
	return count, nil
}

func scanBoard(row interface{ Scan(...any) error }) (Board, error) {
	var b Board
	err := row.Scan(&b.ID, &b.OwnerKey, &b.Name, &b.Slug, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const boardColumns = `id, owner_key, name, slug, is_public, created_at, updated_at`

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, boardID)
	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) GetBoardByOwnerAndSlug(ctx context.Context, ownerKey, slug string) (*Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE owner_key=$1 AND slug=$2`, ownerKey, slug)
	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board by owner and slug: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) ListBoardsByOwner(ctx context.Context, ownerKey string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardColumns+` FROM boards WHERE owner_key=$1 ORDER BY created_at DESC
	`, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

// InsertBoardIfAbsent inserts a board unless the owner already has one
// with the same slug, and returns the winning row either way. The
// UNIQUE(owner_key, slug) constraint makes concurrent first-saves
// converge on a single board.
func (s *PostgresStore) InsertBoardIfAbsent(ctx context.Context, board Board) (Board, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO boards (id, owner_key, name, slug, is_public)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_key, slug) DO NOTHING
		RETURNING id
	`, board.ID, board.OwnerKey, board.Name, board.Slug, board.IsPublic).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Board{}, false, fmt.Errorf("insert board: %w", err)
	}
	inserted := err == nil

	existing, err := s.GetBoardByOwnerAndSlug(ctx, board.OwnerKey, board.Slug)
	if err != nil {
		return Board{}, false, err
	}
	if existing == nil {
		return Board{}, false, fmt.Errorf("board %s/%s vanished after insert", board.OwnerKey, board.Slug)
	}
	return *existing, inserted, nil
}

func (s *PostgresStore) SetBoardVisibility(ctx context.Context, boardID string, isPublic bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE boards SET is_public=$2, updated_at=NOW() WHERE id=$1
	`, boardID, isPublic)
	if err != nil {
		return false, fmt.Errorf("set board visibility: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set board visibility rows: %w", err)
	}
	return affected > 0, nil
}

const boardItemColumns = `id, owner_key, board_id, website_id, created_at`

func scanBoardItem(row interface{ Scan(...any) error }) (BoardItem, error) {
	var bi BoardItem
	err := row.Scan(&bi.ID, &bi.OwnerKey, &bi.BoardID, &bi.WebsiteID, &bi.CreatedAt)
	return bi, err
}

func (s *PostgresStore) GetBoardItem(ctx context.Context, boardItemID string) (*BoardItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardItemColumns+` FROM board_items WHERE id=$1`, boardItemID)
	bi, err := scanBoardItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board item: %w", err)
	}
	return &bi, nil
}

// FindMembership is the dedup lookup: the owner's membership for a
// website across all of their boards, if any.
func (s *PostgresStore) FindMembership(ctx context.Context, ownerKey, websiteID string) (*BoardItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+boardItemColumns+` FROM board_items WHERE owner_key=$1 AND website_id=$2
	`, ownerKey, websiteID)
	bi, err := scanBoardItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return &bi, nil
}

// InsertBoardItemIfAbsent inserts a membership unless the owner already
// has the website somewhere. Returns inserted=false and the existing
// row's id when the dedup constraint wins.
func (s *PostgresStore) InsertBoardItemIfAbsent(ctx context.Context, item BoardItem) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO board_items (id, owner_key, board_id, website_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_key, website_id) DO NOTHING
		RETURNING id
	`, item.ID, item.OwnerKey, item.BoardID, item.WebsiteID).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("insert board item: %w", err)
	}

	existing, err := s.FindMembership(ctx, item.OwnerKey, item.WebsiteID)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("membership %s/%s vanished after insert", item.OwnerKey, item.WebsiteID)
	}
	return existing.ID, false, nil
}

func (s *PostgresStore) DeleteBoardItem(ctx context.Context, boardItemID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM board_items WHERE id=$1`, boardItemID)
	if err != nil {
		return false, fmt.Errorf("delete board item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete board item rows: %w", err)
	}
	return affected > 0, nil
}

// ListBoardItemsByOwner returns an owner's memberships newest first,
// optionally scoped to one board.
func (s *PostgresStore) ListBoardItemsByOwner(ctx context.Context, ownerKey, boardID string) ([]BoardItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardItemColumns+`
		FROM board_items
		WHERE owner_key=$1 AND ($2='' OR board_id=$2)
		ORDER BY created_at DESC, id DESC
	`, ownerKey, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board items: %w", err)
	}
	return collectBoardItems(rows)
}

// ListBoardItemsPage is a keyset-paginated scan over an owner's
// memberships, newest first, optionally filtered to one board. Passing
// a zero beforeCreatedAt starts from the top. One extra row is fetched
// to report whether more remain.
func (s *PostgresStore) ListBoardItemsPage(ctx context.Context, ownerKey, boardID string, limit int, beforeCreatedAt time.Time, beforeID string) ([]BoardItem, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardItemColumns+`
		FROM board_items
		WHERE owner_key=$1
		  AND ($2='' OR board_id=$2)
		  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3, $4))
		ORDER BY created_at DESC, id DESC
		LIMIT $5
	`, ownerKey, boardID, nullableTime(beforeCreatedAt), beforeID, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("list board items page: %w", err)
	}
	items, err := collectBoardItems(rows)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, nil
}

func collectBoardItems(rows *sql.Rows) ([]BoardItem, error) {
	defer rows.Close()
	items := make([]BoardItem, 0)
	for rows.Next() {
		bi, err := scanBoardItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board item: %w", err)
		}
		items = append(items, bi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board items: %w", err)
	}
	return items, nil
}

const waitlistColumns = `id, email, COALESCE(name, ''), COALESCE(source, ''), COALESCE(ref, ''), referral_code, created_at, updated_at`

func scanWaitlistEntry(row interface{ Scan(...any) error }) (WaitlistEntry, error) {
	var e WaitlistEntry
	err := row.Scan(&e.ID, &e.Email, &e.Name, &e.Source, &e.Ref, &e.ReferralCode, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *PostgresStore) GetWaitlistByEmail(ctx context.Context, email string) (*WaitlistEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist WHERE email=$1`, email)
	e, err := scanWaitlistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get waitlist by email: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) GetWaitlistByReferralCode(ctx context.Context, code string) (*WaitlistEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist WHERE referral_code=$1`, code)
	e, err := scanWaitlistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get waitlist by referral code: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) InsertWaitlistEntry(ctx context.Context, entry WaitlistEntry) (WaitlistEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO waitlist (id, email, name, source, ref, referral_code)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING `+waitlistColumns+`
	`, entry.ID, entry.Email, entry.Name, entry.Source, entry.Ref, entry.ReferralCode)
	inserted, err := scanWaitlistEntry(row)
	if err != nil {
		return WaitlistEntry{}, fmt.Errorf("insert waitlist entry: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) CountWaitlist(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return count, nil
}

// CountWaitlistAtOrBefore gives the 1-indexed arrival rank for an entry
// created at the given time (ties share a rank).
func (s *PostgresStore) CountWaitlistAtOrBefore(ctx context.Context, createdAt time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist WHERE created_at <= $1`, createdAt).Scan(&count); err != nil {
		return 0, fmt.Errorf("count waitlist position: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), password_hash, created_at, updated_at FROM users WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), password_hash, created_at, updated_at FROM users WHERE id=$1
	`, userID).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`, user.ID, user.Email, user.Name, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, ownerKey, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, owner_key, user_id, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (token_hash) DO UPDATE SET owner_key=EXCLUDED.owner_key, user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, ownerKey, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (ownerKey, userID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT owner_key, COALESCE(user_id, '')
		FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&ownerKey, &userID)
	if err != nil {
		return "", "", err
	}
	return ownerKey, userID, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
