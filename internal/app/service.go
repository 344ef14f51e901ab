package app

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"waps/api/internal/config"
	"waps/api/internal/scanner"
	"waps/api/internal/search"
	"waps/api/internal/store"
	"waps/api/internal/util"
)

const (
	defaultBoardName = "My Waps"
	defaultBoardSlug = "default"
)

type UpsertWebsiteInput struct {
	CanonicalURL string
	Origin       string
	Slug         string
	Title        string
	Description  string
	Categories   []string
	FaviconURL   *string
	OgImageURL   *string
}

type SaveWebsiteInput struct {
	URL       string `json:"url"`
	BoardSlug string `json:"boardSlug"`
}

type CreateBoardInput struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsPublic bool   `json:"isPublic"`
}

type ListWebsitesInput struct {
	Query        string
	Sort         string
	MinSaveCount int
	Limit        int
}

type ListWapsInput struct {
	BoardSlug string
	Query     string
	Tag       string
	Sort      string
	Limit     int
	Cursor    string
}

// ExploreItem is a website annotated with the freshly recomputed count
// of distinct owners who keep it on a public board.
type ExploreItem struct {
	Website         store.Website
	PublicSaveCount int
}

type WebsiteDetails struct {
	Website     store.Website
	IsSaved     bool
	BoardItemID string
}

// Wap pairs a saved membership with its resolved website.
type Wap struct {
	BoardItem store.BoardItem
	Website   store.Website
}

type WapsPage struct {
	Items      []Wap
	NextCursor string
	HasMore    bool
}

type SaveResult struct {
	Website   store.Website
	BoardItem store.BoardItem
	Deduped   bool
}

type SeedReport struct {
	Board   store.Board
	Added   int
	Deduped int
	Failed  int
}

type dataStore interface {
	GetWebsite(context.Context, string) (*store.Website, error)
	GetWebsiteByCanonicalURL(context.Context, string) (*store.Website, error)
	GetWebsiteBySlug(context.Context, string) (*store.Website, error)
	InsertWebsite(context.Context, store.Website) error
	PatchWebsiteMetadata(context.Context, string, store.WebsitePatch) error
	UpdateWebsiteFavicon(context.Context, string, string) error
	UpdateWebsiteOgImage(context.Context, string, string) error
	ListWebsiteIDs(context.Context, int) ([]string, error)
	ListWebsites(context.Context, string, string, int, int) ([]store.Website, error)
	ListWebsitesBySaveCount(context.Context, string) ([]store.Website, error)
	ListWebsitesByPublicSaveCount(context.Context) ([]store.Website, error)
	ApplyWebsiteCounters(context.Context, string, int, int) error
	CountPublicOwners(context.Context, string) (int, error)
	GetBoard(context.Context, string) (*store.Board, error)
	GetBoardByOwnerAndSlug(context.Context, string, string) (*store.Board, error)
	ListBoardsByOwner(context.Context, string) ([]store.Board, error)
	InsertBoardIfAbsent(context.Context, store.Board) (store.Board, bool, error)
	SetBoardVisibility(context.Context, string, bool) (bool, error)
	GetBoardItem(context.Context, string) (*store.BoardItem, error)
	FindMembership(context.Context, string, string) (*store.BoardItem, error)
	InsertBoardItemIfAbsent(context.Context, store.BoardItem) (string, bool, error)
	DeleteBoardItem(context.Context, string) (bool, error)
	ListBoardItemsByOwner(context.Context, string, string) ([]store.BoardItem, error)
	ListBoardItemsPage(context.Context, string, string, int, time.Time, string) ([]store.BoardItem, bool, error)
	GetWaitlistByEmail(context.Context, string) (*store.WaitlistEntry, error)
	GetWaitlistByReferralCode(context.Context, string) (*store.WaitlistEntry, error)
	InsertWaitlistEntry(context.Context, store.WaitlistEntry) (store.WaitlistEntry, error)
	CountWaitlist(context.Context) (int, error)
	CountWaitlistAtOrBefore(context.Context, time.Time) (int, error)
	GetUserByEmail(context.Context, string) (*store.User, error)
	GetUserByID(context.Context, string) (*store.User, error)
	CreateUser(context.Context, store.User) error
	Ping(ctx context.Context) error
}

type websiteScanner interface {
	Scan(ctx context.Context, rawURL string) (scanner.Result, error)
}

type searchIndex interface {
	IndexWebsite(ctx context.Context, doc search.WebsiteDoc) error
	ReindexAll(docs []search.WebsiteDoc)
	Search(ctx context.Context, query string, limit int) ([]search.WebsiteDoc, error)
}

type mediaCache interface {
	CacheFavicon(ctx context.Context, websiteID, sourceURL string) (string, error)
	CacheOgImage(ctx context.Context, websiteID, sourceURL string) (string, error)
}

type emailSender interface {
	IsConfigured() bool
	SendWaitlistWelcome(to, name, referralURL string) error
}

type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, ownerKey, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (ownerKey, userID string, err error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	scan     websiteScanner
	search   searchIndex
	media    mediaCache
	email    emailSender
	sessions refreshStore
}

type ServiceOption func(*Service)

func WithSearch(index searchIndex) ServiceOption {
	return func(s *Service) { s.search = index }
}

func WithMedia(cache mediaCache) ServiceOption {
	return func(s *Service) { s.media = cache }
}

func WithEmail(sender emailSender) ServiceOption {
	return func(s *Service) { s.email = sender }
}

func WithSessions(sessions refreshStore) ServiceOption {
	return func(s *Service) { s.sessions = sessions }
}

func New(cfg config.Config, dataStore dataStore, scan websiteScanner, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:   cfg,
		store: dataStore,
		scan:  scan,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds a handful of well-known websites into an empty
// registry so fresh deployments have something to explore.
func (s *Service) Bootstrap(ctx context.Context) error {
	ids, err := s.store.ListWebsiteIDs(ctx, 1)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return nil
	}

	seeds := []UpsertWebsiteInput{
		{CanonicalURL: "https://figma.com/", Origin: "figma.com", Slug: "figma-the-collaborative-interface-design-tool", Title: "Figma: The Collaborative Interface Design Tool", Description: "Design, prototype, and gather feedback all in one place.", Categories: []string{"Design"}},
		{CanonicalURL: "https://github.com/", Origin: "github.com", Slug: "github-where-the-world-builds-software", Title: "GitHub: Where the world builds software", Description: "Millions of developers build, ship, and maintain their software on GitHub.", Categories: []string{"Dev & Infra"}},
		{CanonicalURL: "https://notion.so/", Origin: "notion.so", Slug: "notion-your-connected-workspace", Title: "Notion: Your connected workspace", Description: "Write, plan, and organize in one connected workspace.", Categories: []string{"Productivity"}},
		{CanonicalURL: "https://spotify.com/", Origin: "spotify.com", Slug: "spotify-music-for-everyone", Title: "Spotify: Music for everyone", Description: "Millions of songs and podcasts, no credit card needed.", Categories: []string{"Music & Audio"}},
	}
	for _, seed := range seeds {
		if _, err := s.UpsertWebsite(ctx, seed); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWebsite inserts the website for a canonical URL or patches the
// existing row's metadata in place. Counters are never touched here.
func (s *Service) UpsertWebsite(ctx context.Context, input UpsertWebsiteInput) (store.Website, error) {
	if input.CanonicalURL == "" {
		return store.Website{}, invalid("canonicalUrl is required")
	}

	existing, err := s.store.GetWebsiteByCanonicalURL(ctx, input.CanonicalURL)
	if err != nil {
		return store.Website{}, err
	}

	if existing != nil {
		slug := ""
		if input.Slug != "" && input.Slug != existing.Slug {
			slug, err = s.resolveSlug(ctx, input.Slug, existing.ID)
			if err != nil {
				return store.Website{}, err
			}
		}
		patch := store.WebsitePatch{
			Title:       input.Title,
			Slug:        slug,
			Description: input.Description,
			Categories:  input.Categories,
			FaviconURL:  input.FaviconURL,
			OgImageURL:  input.OgImageURL,
			Origin:      input.Origin,
		}
		if err := s.store.PatchWebsiteMetadata(ctx, existing.ID, patch); err != nil {
			return store.Website{}, err
		}
		updated, err := s.store.GetWebsite(ctx, existing.ID)
		if err != nil {
			return store.Website{}, err
		}
		s.indexWebsite(*updated)
		return *updated, nil
	}

	slug, err := s.resolveSlug(ctx, input.Slug, "")
	if err != nil {
		return store.Website{}, err
	}
	website := store.Website{
		ID:           util.NewID("web"),
		CanonicalURL: input.CanonicalURL,
		Slug:         slug,
		Origin:       input.Origin,
		Title:        input.Title,
		Description:  input.Description,
		Categories:   input.Categories,
		FaviconURL:   input.FaviconURL,
		OgImageURL:   input.OgImageURL,
	}
	if err := s.store.InsertWebsite(ctx, website); err != nil {
		return store.Website{}, err
	}
	inserted, err := s.store.GetWebsiteByCanonicalURL(ctx, input.CanonicalURL)
	if err != nil {
		return store.Website{}, err
	}
	s.indexWebsite(*inserted)
	return *inserted, nil
}

// resolveSlug appends a short random suffix when the slug is already
// taken by a different website. One collision check only.
func (s *Service) resolveSlug(ctx context.Context, slug, selfID string) (string, error) {
	if slug == "" {
		slug = util.NewID("site")
	}
	taken, err := s.store.GetWebsiteBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if taken == nil || taken.ID == selfID {
		return slug, nil
	}
	return slug + "-" + util.RandomSuffix(4), nil
}

func (s *Service) GetWebsiteBySlug(ctx context.Context, slug string) (store.Website, error) {
	website, err := s.store.GetWebsiteBySlug(ctx, slug)
	if err != nil {
		return store.Website{}, err
	}
	if website == nil {
		return store.Website{}, notFound("Website not found")
	}
	return *website, nil
}

// GetWebsiteDetails resolves a website by slug plus whether the caller
// already keeps it on one of their boards.
func (s *Service) GetWebsiteDetails(ctx context.Context, slug, ownerKey string) (WebsiteDetails, error) {
	website, err := s.GetWebsiteBySlug(ctx, slug)
	if err != nil {
		return WebsiteDetails{}, err
	}
	details := WebsiteDetails{Website: website}
	if ownerKey != "" {
		membership, err := s.store.FindMembership(ctx, ownerKey, website.ID)
		if err != nil {
			return WebsiteDetails{}, err
		}
		if membership != nil {
			details.IsSaved = true
			details.BoardItemID = membership.ID
		}
	}
	return details, nil
}

func (s *Service) ListWebsiteIDs(ctx context.Context, limit int) ([]string, error) {
	return s.store.ListWebsiteIDs(ctx, clampLimit(limit, 1, 10000, 10000))
}

// ListAllWebsites is the browse query: optional substring search over
// title, description, and origin, sorted popular (default) or recent.
func (s *Service) ListAllWebsites(ctx context.Context, input ListWebsitesInput) ([]store.Website, error) {
	sortOrder := input.Sort
	switch sortOrder {
	case "", "popular":
		sortOrder = "popular"
	case "recent":
	default:
		return nil, invalid("sort must be popular or recent")
	}
	limit := clampLimit(input.Limit, 10, 500, 120)
	minSaveCount := input.MinSaveCount
	if minSaveCount < 0 {
		minSaveCount = 0
	}
	return s.store.ListWebsites(ctx, normalizeQuery(input.Query), sortOrder, minSaveCount, limit)
}

// ExploreFeed walks the most-saved websites and recomputes each one's
// distinct-owner public save count from the membership rows, skipping
// anything nobody keeps on a public board. The cached counter is
// deliberately ignored here so visibility flips never skew the feed.
func (s *Service) ExploreFeed(ctx context.Context, query string, limit int) ([]ExploreItem, error) {
	limit = clampLimit(limit, 10, 300, 120)

	candidates, err := s.store.ListWebsitesBySaveCount(ctx, normalizeQuery(query))
	if err != nil {
		return nil, err
	}

	items := make([]ExploreItem, 0, limit)
	for _, website := range candidates {
		count, err := s.store.CountPublicOwners(ctx, website.ID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		items = append(items, ExploreItem{Website: website, PublicSaveCount: count})
		if len(items) >= limit {
			break
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublicSaveCount > items[j].PublicSaveCount
	})
	return items, nil
}

// GetSimilarWebsites finds websites sharing a category with the seed,
// most publicly saved first. A seed with no categories has no signal
// and yields an empty list.
func (s *Service) GetSimilarWebsites(ctx context.Context, slug string, limit int) ([]store.Website, error) {
	limit = clampLimit(limit, 1, 24, 8)

	seed, err := s.store.GetWebsiteBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if seed == nil || len(seed.Categories) == 0 {
		return []store.Website{}, nil
	}

	seedCategories := make(map[string]struct{}, len(seed.Categories))
	for _, category := range seed.Categories {
		seedCategories[strings.ToLower(category)] = struct{}{}
	}

	candidates, err := s.store.ListWebsitesByPublicSaveCount(ctx)
	if err != nil {
		return nil, err
	}

	similar := make([]store.Website, 0, limit)
	for _, candidate := range candidates {
		if candidate.ID == seed.ID {
			continue
		}
		if !sharesCategory(candidate.Categories, seedCategories) {
			continue
		}
		similar = append(similar, candidate)
		if len(similar) >= limit {
			break
		}
	}
	return similar, nil
}

func sharesCategory(categories []string, wanted map[string]struct{}) bool {
	for _, category := range categories {
		if _, ok := wanted[strings.ToLower(category)]; ok {
			return true
		}
	}
	return false
}

// EnsureDefaultBoard lazily creates the owner's private default board.
// Concurrent callers converge on one board via the store's
// insert-if-absent primitive.
func (s *Service) EnsureDefaultBoard(ctx context.Context, ownerKey string) (store.Board, error) {
	if ownerKey == "" {
		return store.Board{}, invalid("ownerKey is required")
	}
	board, _, err := s.store.InsertBoardIfAbsent(ctx, store.Board{
		ID:       util.NewID("brd"),
		OwnerKey: ownerKey,
		Name:     defaultBoardName,
		Slug:     defaultBoardSlug,
		IsPublic: false,
	})
	return board, err
}

// EnsurePublicBoard creates a public board with the given slug unless
// the owner already has one, in which case the existing board is
// returned unchanged, even if it has since been made private.
func (s *Service) EnsurePublicBoard(ctx context.Context, ownerKey, name, slug string) (store.Board, error) {
	if ownerKey == "" {
		return store.Board{}, invalid("ownerKey is required")
	}
	if slug == "" {
		slug = util.Slugify(name)
	}
	if slug == "" {
		return store.Board{}, invalid("board name or slug is required")
	}
	board, _, err := s.store.InsertBoardIfAbsent(ctx, store.Board{
		ID:       util.NewID("brd"),
		OwnerKey: ownerKey,
		Name:     name,
		Slug:     slug,
		IsPublic: true,
	})
	return board, err
}

func (s *Service) CreateBoard(ctx context.Context, ownerKey string, input CreateBoardInput) (store.Board, error) {
	if ownerKey == "" {
		return store.Board{}, invalid("ownerKey is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Board{}, invalid("name is required")
	}
	slug := input.Slug
	if slug == "" {
		slug = util.Slugify(input.Name)
	}
	board, inserted, err := s.store.InsertBoardIfAbsent(ctx, store.Board{
		ID:       util.NewID("brd"),
		OwnerKey: ownerKey,
		Name:     strings.TrimSpace(input.Name),
		Slug:     slug,
		IsPublic: input.IsPublic,
	})
	if err != nil {
		return store.Board{}, err
	}
	if !inserted {
		return store.Board{}, conflict("BOARD_EXISTS", "A board with this slug already exists")
	}
	return board, nil
}

func (s *Service) GetBoard(ctx context.Context, ownerKey, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, err
	}
	if board == nil {
		return store.Board{}, notFound("Board not found")
	}
	if !board.IsPublic && board.OwnerKey != ownerKey {
		return store.Board{}, forbidden("Forbidden")
	}
	return *board, nil
}

func (s *Service) ListBoards(ctx context.Context, ownerKey string) ([]store.Board, error) {
	if ownerKey == "" {
		return nil, invalid("ownerKey is required")
	}
	return s.store.ListBoardsByOwner(ctx, ownerKey)
}

// SetBoardVisibility flips the public flag. Cached public save counts
// on websites already in the board are NOT adjusted; the explore feed
// recomputes them from memberships, so it stays correct regardless.
func (s *Service) SetBoardVisibility(ctx context.Context, ownerKey, boardID string, isPublic bool) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, err
	}
	if board == nil {
		return store.Board{}, notFound("Board not found")
	}
	if board.OwnerKey != ownerKey {
		return store.Board{}, forbidden("Forbidden")
	}
	updated, err := s.store.SetBoardVisibility(ctx, boardID, isPublic)
	if err != nil {
		return store.Board{}, err
	}
	if !updated {
		return store.Board{}, notFound("Board not found")
	}
	board.IsPublic = isPublic
	return *board, nil
}

// AddToBoard saves a website to one of the caller's boards. An owner
// keeps at most one membership per website across all boards: when one
// already exists anywhere, it is returned unchanged and no counter
// moves.
func (s *Service) AddToBoard(ctx context.Context, ownerKey, boardID, websiteID string) (store.BoardItem, bool, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.BoardItem{}, false, err
	}
	if board == nil {
		return store.BoardItem{}, false, notFound("Board not found")
	}
	if board.OwnerKey != ownerKey {
		return store.BoardItem{}, false, forbidden("Forbidden")
	}

	website, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return store.BoardItem{}, false, err
	}
	if website == nil {
		return store.BoardItem{}, false, notFound("Website not found")
	}

	itemID, inserted, err := s.store.InsertBoardItemIfAbsent(ctx, store.BoardItem{
		ID:        util.NewID("itm"),
		OwnerKey:  ownerKey,
		BoardID:   boardID,
		WebsiteID: websiteID,
	})
	if err != nil {
		return store.BoardItem{}, false, err
	}

	if inserted {
		if err := s.applyMembershipDelta(ctx, websiteID, board.IsPublic, +1); err != nil {
			return store.BoardItem{}, false, err
		}
	}

	item, err := s.store.GetBoardItem(ctx, itemID)
	if err != nil {
		return store.BoardItem{}, false, err
	}
	if item == nil {
		return store.BoardItem{}, false, notFound("Board item not found")
	}
	return *item, !inserted, nil
}

// AddToDefault saves to the lazily created default board.
func (s *Service) AddToDefault(ctx context.Context, ownerKey, websiteID string) (store.BoardItem, bool, error) {
	board, err := s.EnsureDefaultBoard(ctx, ownerKey)
	if err != nil {
		return store.BoardItem{}, false, err
	}
	return s.AddToBoard(ctx, ownerKey, board.ID, websiteID)
}

// RemoveFromBoard deletes the caller's membership and walks the
// counters back down. Counters floor at zero in the store. A missing
// board is NotFound: the membership stays, nothing moves.
func (s *Service) RemoveFromBoard(ctx context.Context, ownerKey, boardItemID string) error {
	item, err := s.store.GetBoardItem(ctx, boardItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return notFound("Board item not found")
	}
	if item.OwnerKey != ownerKey {
		return forbidden("Forbidden")
	}

	board, err := s.store.GetBoard(ctx, item.BoardID)
	if err != nil {
		return err
	}
	if board == nil {
		return notFound("Board not found")
	}

	deleted, err := s.store.DeleteBoardItem(ctx, boardItemID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	return s.applyMembershipDelta(ctx, item.WebsiteID, board.IsPublic, -1)
}

// applyMembershipDelta is the single place counters move from: one
// unit of saveCount per membership, one of publicSaveCount when the
// board is public at the time of the change.
func (s *Service) applyMembershipDelta(ctx context.Context, websiteID string, isPublic bool, sign int) error {
	publicDelta := 0
	if isPublic {
		publicDelta = sign
	}
	return s.store.ApplyWebsiteCounters(ctx, websiteID, sign, publicDelta)
}

// ListMine returns the caller's saved websites, newest membership
// first, optionally scoped to one board, resolved and filtered. The
// limit applies to memberships before websites are resolved.
func (s *Service) ListMine(ctx context.Context, ownerKey, boardID, query string, limit int) ([]store.Website, error) {
	if ownerKey == "" {
		return nil, invalid("ownerKey is required")
	}
	limit = clampLimit(limit, 10, 2000, 500)

	items, err := s.store.ListBoardItemsByOwner(ctx, ownerKey, boardID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	websiteIDs := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.WebsiteID]; ok {
			continue
		}
		seen[item.WebsiteID] = struct{}{}
		websiteIDs = append(websiteIDs, item.WebsiteID)
		if len(websiteIDs) >= limit {
			break
		}
	}

	search := normalizeQuery(query)
	websites := make([]store.Website, 0, len(websiteIDs))
	for _, websiteID := range websiteIDs {
		website, err := s.store.GetWebsite(ctx, websiteID)
		if err != nil {
			return nil, err
		}
		if website == nil {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(website.Title + " " + website.Description + " " + website.Origin)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		websites = append(websites, *website)
	}

	sort.SliceStable(websites, func(i, j int) bool {
		if !websites[i].UpdatedAt.Equal(websites[j].UpdatedAt) {
			return websites[i].UpdatedAt.After(websites[j].UpdatedAt)
		}
		return websites[i].Title < websites[j].Title
	})
	return websites, nil
}

// ListUserWaps is the cursor-paginated view over an owner's saves,
// optionally scoped to a board by slug and filtered by search text or
// an exact (case-insensitive) category tag. A slug that matches none
// of the owner's boards drops the filter. Pages are cut over
// membership recency; the requested sort is applied within the
// returned page.
func (s *Service) ListUserWaps(ctx context.Context, ownerKey string, input ListWapsInput) (WapsPage, error) {
	if ownerKey == "" {
		return WapsPage{}, invalid("ownerKey is required")
	}
	switch input.Sort {
	case "", "recent", "az", "popular":
	default:
		return WapsPage{}, invalid("sort must be recent, az, or popular")
	}
	limit := clampLimit(input.Limit, 1, 100, 24)

	boardID := ""
	if input.BoardSlug != "" {
		board, err := s.store.GetBoardByOwnerAndSlug(ctx, ownerKey, input.BoardSlug)
		if err != nil {
			return WapsPage{}, err
		}
		if board != nil {
			boardID = board.ID
		}
	}

	beforeCreatedAt, beforeID, err := decodeCursor(input.Cursor)
	if err != nil {
		return WapsPage{}, invalid("invalid cursor")
	}

	search := normalizeQuery(input.Query)
	tag := strings.ToLower(strings.TrimSpace(input.Tag))

	page := WapsPage{Items: make([]Wap, 0, limit)}
	for {
		items, hasMore, err := s.store.ListBoardItemsPage(ctx, ownerKey, boardID, limit, beforeCreatedAt, beforeID)
		if err != nil {
			return WapsPage{}, err
		}

		for _, item := range items {
			beforeCreatedAt, beforeID = item.CreatedAt, item.ID

			website, err := s.store.GetWebsite(ctx, item.WebsiteID)
			if err != nil {
				return WapsPage{}, err
			}
			if website == nil {
				continue
			}
			if search != "" {
				haystack := strings.ToLower(website.Title + " " + website.CanonicalURL + " " + website.Origin)
				if !strings.Contains(haystack, search) {
					continue
				}
			}
			if tag != "" && !hasTag(website.Categories, tag) {
				continue
			}

			page.Items = append(page.Items, Wap{BoardItem: item, Website: *website})
			if len(page.Items) >= limit {
				page.HasMore = hasMore || item.ID != items[len(items)-1].ID
				page.NextCursor = encodeCursor(beforeCreatedAt, beforeID)
				sortWaps(page.Items, input.Sort)
				return page, nil
			}
		}

		if !hasMore {
			sortWaps(page.Items, input.Sort)
			return page, nil
		}
	}
}

func hasTag(categories []string, tag string) bool {
	for _, category := range categories {
		if strings.ToLower(category) == tag {
			return true
		}
	}
	return false
}

func sortWaps(items []Wap, sortOrder string) {
	switch sortOrder {
	case "az":
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Website.Title) < strings.ToLower(items[j].Website.Title)
		})
	case "popular":
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Website.SaveCount > items[j].Website.SaveCount
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].BoardItem.CreatedAt.After(items[j].BoardItem.CreatedAt)
		})
	}
}

// SaveWebsite is the composed save flow: scan the URL, upsert the
// registry row, and add it to the caller's board (default board when
// none is named). Favicon caching happens off the request path.
func (s *Service) SaveWebsite(ctx context.Context, ownerKey string, input SaveWebsiteInput) (SaveResult, error) {
	if ownerKey == "" {
		return SaveResult{}, invalid("ownerKey is required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return SaveResult{}, invalid("url is required")
	}

	scanned, err := s.scan.Scan(ctx, strings.TrimSpace(input.URL))
	if err != nil {
		return SaveResult{}, invalid("url is not a valid website address")
	}

	website, err := s.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: scanned.CanonicalURL,
		Origin:       scanned.Origin,
		Slug:         scanned.Slug,
		Title:        scanned.Title,
		Description:  scanned.Description,
		Categories:   []string{scanned.Category},
		FaviconURL:   optional(scanned.FaviconURL),
		OgImageURL:   optional(scanned.OgImageURL),
	})
	if err != nil {
		return SaveResult{}, err
	}

	var board store.Board
	if input.BoardSlug == "" {
		board, err = s.EnsureDefaultBoard(ctx, ownerKey)
	} else {
		var found *store.Board
		found, err = s.store.GetBoardByOwnerAndSlug(ctx, ownerKey, input.BoardSlug)
		if err == nil && found == nil {
			err = notFound("Board not found")
		}
		if found != nil {
			board = *found
		}
	}
	if err != nil {
		return SaveResult{}, err
	}

	item, deduped, err := s.AddToBoard(ctx, ownerKey, board.ID, website.ID)
	if err != nil {
		return SaveResult{}, err
	}

	s.cacheMedia(website.ID, scanned.FaviconURL, scanned.OgImageURL)

	return SaveResult{Website: website, BoardItem: item, Deduped: deduped}, nil
}

// cacheMedia re-homes the favicon and preview image into object
// storage off the request path; the scanned URLs keep serving until
// the swap lands.
func (s *Service) cacheMedia(websiteID, faviconURL, ogImageURL string) {
	if s.media == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if faviconURL != "" {
			cachedURL, err := s.media.CacheFavicon(ctx, websiteID, faviconURL)
			if err != nil {
				log.Printf("cache favicon for %s: %v", websiteID, err)
			} else if err := s.store.UpdateWebsiteFavicon(ctx, websiteID, cachedURL); err != nil {
				log.Printf("update favicon for %s: %v", websiteID, err)
			}
		}
		if ogImageURL != "" {
			cachedURL, err := s.media.CacheOgImage(ctx, websiteID, ogImageURL)
			if err != nil {
				log.Printf("cache og image for %s: %v", websiteID, err)
			} else if err := s.store.UpdateWebsiteOgImage(ctx, websiteID, cachedURL); err != nil {
				log.Printf("update og image for %s: %v", websiteID, err)
			}
		}
	}()
}

func websiteDoc(website store.Website) search.WebsiteDoc {
	return search.WebsiteDoc{
		ID:          website.ID,
		Slug:        website.Slug,
		Title:       website.Title,
		Description: website.Description,
		Origin:      website.Origin,
		Categories:  website.Categories,
		SaveCount:   website.SaveCount,
	}
}

func (s *Service) indexWebsite(website store.Website) {
	if s.search == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.search.IndexWebsite(ctx, websiteDoc(website)); err != nil {
			log.Printf("index website %s: %v", website.ID, err)
		}
	}()
}

// ReindexSearch bulk-loads the search index from the registry so a
// fresh index catches up on rows written while it was away.
func (s *Service) ReindexSearch(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	websites, err := s.store.ListWebsitesBySaveCount(ctx, "")
	if err != nil {
		return err
	}
	docs := make([]search.WebsiteDoc, 0, len(websites))
	for _, website := range websites {
		docs = append(docs, websiteDoc(website))
	}
	s.search.ReindexAll(docs)
	return nil
}

// SearchWebsites serves the search endpoint through the index facade.
func (s *Service) SearchWebsites(ctx context.Context, query string, limit int) ([]search.WebsiteDoc, error) {
	if s.search == nil {
		return []search.WebsiteDoc{}, nil
	}
	return s.search.Search(ctx, normalizeQuery(query), clampLimit(limit, 1, 100, 20))
}

// SeedPublicBoard ensures the owner has a public discover board and
// adds every registered website to it, reporting what happened.
func (s *Service) SeedPublicBoard(ctx context.Context, ownerKey, name string) (SeedReport, error) {
	if name == "" {
		name = "Discover"
	}
	board, err := s.EnsurePublicBoard(ctx, ownerKey, name, util.Slugify(name))
	if err != nil {
		return SeedReport{}, err
	}

	websiteIDs, err := s.store.ListWebsiteIDs(ctx, 10000)
	if err != nil {
		return SeedReport{}, err
	}

	report := SeedReport{Board: board}
	for _, websiteID := range websiteIDs {
		_, inserted, err := s.store.InsertBoardItemIfAbsent(ctx, store.BoardItem{
			ID:        util.NewID("itm"),
			OwnerKey:  ownerKey,
			BoardID:   board.ID,
			WebsiteID: websiteID,
		})
		if err != nil {
			report.Failed++
			continue
		}
		if !inserted {
			report.Deduped++
			continue
		}
		if err := s.applyMembershipDelta(ctx, websiteID, board.IsPublic, +1); err != nil {
			report.Failed++
			continue
		}
		report.Added++
	}
	return report, nil
}

func clampLimit(limit, min, max, fallback int) int {
	if limit == 0 {
		limit = fallback
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
