package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"waps/api/internal/config"
	"waps/api/internal/scanner"
	"waps/api/internal/search"
	"waps/api/internal/store"
)

// memStore mimics the SQL schema's behavior: unique canonical URLs and
// slugs, one membership per (owner, website), counters clamped at zero.
type memStore struct {
	mu       sync.Mutex
	websites map[string]*store.Website
	boards   map[string]*store.Board
	items    map[string]*store.BoardItem
	waitlist map[string]*store.WaitlistEntry
	users    map[string]*store.User
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		websites: make(map[string]*store.Website),
		boards:   make(map[string]*store.Board),
		items:    make(map[string]*store.BoardItem),
		waitlist: make(map[string]*store.WaitlistEntry),
		users:    make(map[string]*store.User),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) GetWebsite(_ context.Context, id string) (*store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.websites[id]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) GetWebsiteByCanonicalURL(_ context.Context, canonicalURL string) (*store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if w.CanonicalURL == canonicalURL {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetWebsiteBySlug(_ context.Context, slug string) (*store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if w.Slug == slug {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertWebsite(_ context.Context, w store.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.websites {
		if existing.CanonicalURL == w.CanonicalURL {
			return fmt.Errorf("duplicate canonical url %s", w.CanonicalURL)
		}
		if existing.Slug == w.Slug {
			return fmt.Errorf("duplicate slug %s", w.Slug)
		}
	}
	now := m.tick()
	w.CreatedAt, w.UpdatedAt = now, now
	m.websites[w.ID] = &w
	return nil
}

func (m *memStore) PatchWebsiteMetadata(_ context.Context, id string, patch store.WebsitePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return nil
	}
	w.Title = patch.Title
	if patch.Slug != "" {
		w.Slug = patch.Slug
	}
	w.Description = patch.Description
	w.Categories = patch.Categories
	if patch.FaviconURL != nil {
		w.FaviconURL = patch.FaviconURL
	}
	if patch.OgImageURL != nil {
		w.OgImageURL = patch.OgImageURL
	}
	w.Origin = patch.Origin
	w.UpdatedAt = m.tick()
	return nil
}

func (m *memStore) UpdateWebsiteFavicon(_ context.Context, id, faviconURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.websites[id]; ok {
		w.FaviconURL = &faviconURL
		w.UpdatedAt = m.tick()
	}
	return nil
}

func (m *memStore) UpdateWebsiteOgImage(_ context.Context, id, ogImageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.websites[id]; ok {
		w.OgImageURL = &ogImageURL
		w.UpdatedAt = m.tick()
	}
	return nil
}

func (m *memStore) allWebsites() []store.Website {
	websites := make([]store.Website, 0, len(m.websites))
	for _, w := range m.websites {
		websites = append(websites, *w)
	}
	return websites
}

func (m *memStore) ListWebsiteIDs(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	websites := m.allWebsites()
	sort.Slice(websites, func(i, j int) bool { return websites[i].CreatedAt.Before(websites[j].CreatedAt) })
	ids := make([]string, 0, len(websites))
	for _, w := range websites {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func matchesSearch(w store.Website, search string) bool {
	if search == "" {
		return true
	}
	haystack := strings.ToLower(w.Title + " " + w.Description + " " + w.Origin)
	return strings.Contains(haystack, search)
}

func (m *memStore) ListWebsites(_ context.Context, search, sortOrder string, minSaveCount, limit int) ([]store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	websites := make([]store.Website, 0)
	for _, w := range m.allWebsites() {
		if w.SaveCount >= minSaveCount && matchesSearch(w, search) {
			websites = append(websites, w)
		}
	}
	if sortOrder == "recent" {
		sort.Slice(websites, func(i, j int) bool {
			if !websites[i].CreatedAt.Equal(websites[j].CreatedAt) {
				return websites[i].CreatedAt.After(websites[j].CreatedAt)
			}
			return websites[i].Title < websites[j].Title
		})
	} else {
		sort.Slice(websites, func(i, j int) bool {
			if websites[i].SaveCount != websites[j].SaveCount {
				return websites[i].SaveCount > websites[j].SaveCount
			}
			if !websites[i].CreatedAt.Equal(websites[j].CreatedAt) {
				return websites[i].CreatedAt.After(websites[j].CreatedAt)
			}
			return websites[i].Title < websites[j].Title
		})
	}
	if len(websites) > limit {
		websites = websites[:limit]
	}
	return websites, nil
}

func (m *memStore) ListWebsitesBySaveCount(_ context.Context, search string) ([]store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	websites := make([]store.Website, 0)
	for _, w := range m.allWebsites() {
		if matchesSearch(w, search) {
			websites = append(websites, w)
		}
	}
	sort.Slice(websites, func(i, j int) bool {
		if websites[i].SaveCount != websites[j].SaveCount {
			return websites[i].SaveCount > websites[j].SaveCount
		}
		return websites[i].CreatedAt.After(websites[j].CreatedAt)
	})
	return websites, nil
}

func (m *memStore) ListWebsitesByPublicSaveCount(_ context.Context) ([]store.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	websites := m.allWebsites()
	sort.Slice(websites, func(i, j int) bool {
		if websites[i].PublicSaveCount != websites[j].PublicSaveCount {
			return websites[i].PublicSaveCount > websites[j].PublicSaveCount
		}
		return websites[i].SaveCount > websites[j].SaveCount
	})
	return websites, nil
}

func (m *memStore) ApplyWebsiteCounters(_ context.Context, id string, delta, publicDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return nil
	}
	w.SaveCount += delta
	if w.SaveCount < 0 {
		w.SaveCount = 0
	}
	w.PublicSaveCount += publicDelta
	if w.PublicSaveCount < 0 {
		w.PublicSaveCount = 0
	}
	w.UpdatedAt = m.tick()
	return nil
}

func (m *memStore) CountPublicOwners(_ context.Context, websiteID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owners := make(map[string]struct{})
	for _, item := range m.items {
		if item.WebsiteID != websiteID {
			continue
		}
		if board, ok := m.boards[item.BoardID]; ok && board.IsPublic {
			owners[board.OwnerKey] = struct{}{}
		}
	}
	return len(owners), nil
}

func (m *memStore) GetBoard(_ context.Context, id string) (*store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.boards[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) GetBoardByOwnerAndSlug(_ context.Context, ownerKey, slug string) (*store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.boards {
		if b.OwnerKey == ownerKey && b.Slug == slug {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListBoardsByOwner(_ context.Context, ownerKey string) ([]store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	boards := make([]store.Board, 0)
	for _, b := range m.boards {
		if b.OwnerKey == ownerKey {
			boards = append(boards, *b)
		}
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].CreatedAt.After(boards[j].CreatedAt) })
	return boards, nil
}

func (m *memStore) InsertBoardIfAbsent(_ context.Context, board store.Board) (store.Board, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.boards {
		if existing.OwnerKey == board.OwnerKey && existing.Slug == board.Slug {
			return *existing, false, nil
		}
	}
	now := m.tick()
	board.CreatedAt, board.UpdatedAt = now, now
	m.boards[board.ID] = &board
	return board, true, nil
}

func (m *memStore) SetBoardVisibility(_ context.Context, id string, isPublic bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return false, nil
	}
	b.IsPublic = isPublic
	b.UpdatedAt = m.tick()
	return true, nil
}

func (m *memStore) GetBoardItem(_ context.Context, id string) (*store.BoardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) FindMembership(_ context.Context, ownerKey, websiteID string) (*store.BoardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findMembershipLocked(ownerKey, websiteID), nil
}

func (m *memStore) findMembershipLocked(ownerKey, websiteID string) *store.BoardItem {
	for _, item := range m.items {
		if item.OwnerKey == ownerKey && item.WebsiteID == websiteID {
			copied := *item
			return &copied
		}
	}
	return nil
}

func (m *memStore) InsertBoardItemIfAbsent(_ context.Context, item store.BoardItem) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.findMembershipLocked(item.OwnerKey, item.WebsiteID); existing != nil {
		return existing.ID, false, nil
	}
	item.CreatedAt = m.tick()
	m.items[item.ID] = &item
	return item.ID, true, nil
}

func (m *memStore) DeleteBoardItem(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memStore) itemsByOwner(ownerKey, boardID string) []store.BoardItem {
	items := make([]store.BoardItem, 0)
	for _, item := range m.items {
		if item.OwnerKey != ownerKey {
			continue
		}
		if boardID != "" && item.BoardID != boardID {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items
}

func (m *memStore) ListBoardItemsByOwner(_ context.Context, ownerKey, boardID string) ([]store.BoardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsByOwner(ownerKey, boardID), nil
}

func (m *memStore) ListBoardItemsPage(_ context.Context, ownerKey, boardID string, limit int, beforeCreatedAt time.Time, beforeID string) ([]store.BoardItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.itemsByOwner(ownerKey, boardID)
	page := make([]store.BoardItem, 0, limit)
	for _, item := range all {
		if !beforeCreatedAt.IsZero() {
			after := item.CreatedAt.After(beforeCreatedAt) ||
				(item.CreatedAt.Equal(beforeCreatedAt) && item.ID >= beforeID)
			if after {
				continue
			}
		}
		page = append(page, item)
		if len(page) > limit {
			break
		}
	}
	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}
	return page, hasMore, nil
}

func (m *memStore) GetWaitlistByEmail(_ context.Context, email string) (*store.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.waitlist {
		if e.Email == email {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetWaitlistByReferralCode(_ context.Context, code string) (*store.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.waitlist {
		if e.ReferralCode == code {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertWaitlistEntry(_ context.Context, entry store.WaitlistEntry) (store.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.waitlist {
		if existing.Email == entry.Email {
			return store.WaitlistEntry{}, fmt.Errorf("duplicate email %s", entry.Email)
		}
	}
	now := m.tick()
	entry.CreatedAt, entry.UpdatedAt = now, now
	m.waitlist[entry.ID] = &entry
	return entry, nil
}

func (m *memStore) CountWaitlist(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waitlist), nil
}

func (m *memStore) CountWaitlistAtOrBefore(_ context.Context, createdAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.waitlist {
		if !e.CreatedAt.After(createdAt) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) CreateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return fmt.Errorf("duplicate email %s", user.Email)
		}
	}
	now := m.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = &user
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

// fakeScanner derives deterministic metadata from the URL, the way the
// real scanner falls back to hostname defaults.
type fakeScanner struct {
	results map[string]scanner.Result
}

func (f *fakeScanner) Scan(_ context.Context, rawURL string) (scanner.Result, error) {
	if result, ok := f.results[rawURL]; ok {
		return result, nil
	}
	host := strings.TrimPrefix(rawURL, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(strings.SplitN(host, "/", 2)[0], "/")
	slug := strings.ReplaceAll(host, ".", "-")
	return scanner.Result{
		CanonicalURL: "https://" + host + "/",
		Origin:       host,
		Slug:         slug,
		Title:        host,
		Description:  "“" + host + "” is a website you can explore for more details and features.",
		Category:     "Tools",
		FaviconURL:   "https://www.google.com/s2/favicons?sz=64&domain=" + host,
	}, nil
}

func newTestService() (*Service, *memStore) {
	mem := newMemStore()
	cfg := config.Config{
		TokenSecret:   "test-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		PublicBaseURL: "https://waps.test",
	}
	service := New(cfg, mem, &fakeScanner{})
	return service, mem
}

func TestSaveWebsiteCreatesDefaultBoardAndCounts(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("save website: %v", err)
	}
	if result.Deduped {
		t.Fatal("first save should not be deduped")
	}
	if result.Website.CanonicalURL != "https://example.com/" {
		t.Fatalf("canonical url = %q", result.Website.CanonicalURL)
	}

	boards, err := service.ListBoards(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if len(boards) != 1 || boards[0].Name != "My Waps" || boards[0].Slug != "default" || boards[0].IsPublic {
		t.Fatalf("default board = %+v", boards)
	}

	website, err := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if err != nil {
		t.Fatalf("get website: %v", err)
	}
	if website.SaveCount != 1 {
		t.Fatalf("saveCount = %d, want 1", website.SaveCount)
	}
	if website.PublicSaveCount != 0 {
		t.Fatalf("publicSaveCount = %d, want 0 (default board is private)", website.PublicSaveCount)
	}
}

func TestSaveWebsiteDedupesAcrossBoards(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	first, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	other, err := service.CreateBoard(ctx, "owner-1", CreateBoardInput{Name: "Favorites"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	second, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "https://www.example.com", BoardSlug: other.Slug})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !second.Deduped {
		t.Fatal("second save of the same site should dedupe")
	}
	if second.BoardItem.ID != first.BoardItem.ID {
		t.Fatalf("dedupe returned a different membership: %s vs %s", second.BoardItem.ID, first.BoardItem.ID)
	}
	if second.BoardItem.BoardID != first.BoardItem.BoardID {
		t.Fatal("membership should stay on the original board")
	}

	website, err := service.GetWebsiteBySlug(ctx, first.Website.Slug)
	if err != nil {
		t.Fatalf("get website: %v", err)
	}
	if website.SaveCount != 1 {
		t.Fatalf("saveCount = %d after dedupe, want 1", website.SaveCount)
	}
}

func TestDistinctOwnersEachCount(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"}); err != nil {
		t.Fatalf("save owner-1: %v", err)
	}
	result, err := service.SaveWebsite(ctx, "owner-2", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("save owner-2: %v", err)
	}
	if result.Deduped {
		t.Fatal("a different owner's save must not dedupe")
	}

	website, err := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if err != nil {
		t.Fatalf("get website: %v", err)
	}
	if website.SaveCount != 2 {
		t.Fatalf("saveCount = %d, want 2", website.SaveCount)
	}
}

func TestRemoveFromBoardWalksCountersDown(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	board, err := service.EnsurePublicBoard(ctx, "owner-1", "Shared", "shared")
	if err != nil {
		t.Fatalf("ensure public board: %v", err)
	}
	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com", BoardSlug: board.Slug})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	website, _ := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if website.SaveCount != 1 || website.PublicSaveCount != 1 {
		t.Fatalf("counters = (%d, %d), want (1, 1)", website.SaveCount, website.PublicSaveCount)
	}

	if err := service.RemoveFromBoard(ctx, "owner-1", result.BoardItem.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	website, _ = service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if website.SaveCount != 0 || website.PublicSaveCount != 0 {
		t.Fatalf("counters after remove = (%d, %d), want (0, 0)", website.SaveCount, website.PublicSaveCount)
	}

	err = service.RemoveFromBoard(ctx, "owner-1", result.BoardItem.ID)
	domainErr, ok := err.(*DomainError)
	if !ok || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("second remove = %v, want NOT_FOUND", err)
	}

	website, _ = service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if website.SaveCount != 0 {
		t.Fatalf("saveCount went negative or moved: %d", website.SaveCount)
	}
}

func TestRemoveFromBoardRejectsOtherOwners(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	err = service.RemoveFromBoard(ctx, "owner-2", result.BoardItem.ID)
	domainErr, ok := err.(*DomainError)
	if !ok || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("cross-owner remove = %v, want FORBIDDEN", err)
	}
}

func TestVisibilityToggleLeavesCachedCounterStale(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	boards, _ := service.ListBoards(ctx, "owner-1")
	if _, err := service.SetBoardVisibility(ctx, "owner-1", boards[0].ID, true); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	// The cached counter does not move on a visibility flip; only
	// membership changes adjust it.
	website, _ := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if website.PublicSaveCount != 0 {
		t.Fatalf("cached publicSaveCount = %d after toggle, want 0", website.PublicSaveCount)
	}

	// The explore feed recomputes from memberships and sees the save.
	feed, err := service.ExploreFeed(ctx, "", 0)
	if err != nil {
		t.Fatalf("explore feed: %v", err)
	}
	if len(feed) != 1 || feed[0].PublicSaveCount != 1 {
		t.Fatalf("feed = %+v, want one item with publicSaveCount 1", feed)
	}
}

func TestExploreFeedSkipsPrivateOnlySaves(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "private-only.com"}); err != nil {
		t.Fatalf("save private: %v", err)
	}
	board, err := service.EnsurePublicBoard(ctx, "owner-2", "Shared", "shared")
	if err != nil {
		t.Fatalf("ensure public board: %v", err)
	}
	if _, err := service.SaveWebsite(ctx, "owner-2", SaveWebsiteInput{URL: "shared.com", BoardSlug: board.Slug}); err != nil {
		t.Fatalf("save shared: %v", err)
	}

	feed, err := service.ExploreFeed(ctx, "", 0)
	if err != nil {
		t.Fatalf("explore feed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("feed has %d items, want 1", len(feed))
	}
	if feed[0].Website.Origin != "shared.com" {
		t.Fatalf("feed item = %s, want shared.com", feed[0].Website.Origin)
	}
}

func TestExploreFeedOrdersByFreshPublicCount(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	for _, owner := range []string{"a", "b", "c"} {
		board, err := service.EnsurePublicBoard(ctx, owner, "Shared", "shared")
		if err != nil {
			t.Fatalf("ensure board for %s: %v", owner, err)
		}
		if _, err := service.SaveWebsite(ctx, owner, SaveWebsiteInput{URL: "popular.com", BoardSlug: board.Slug}); err != nil {
			t.Fatalf("save popular for %s: %v", owner, err)
		}
	}
	if _, err := service.SaveWebsite(ctx, "a", SaveWebsiteInput{URL: "niche.com", BoardSlug: "shared"}); err != nil {
		t.Fatalf("save niche: %v", err)
	}

	feed, err := service.ExploreFeed(ctx, "", 0)
	if err != nil {
		t.Fatalf("explore feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed has %d items, want 2", len(feed))
	}
	if feed[0].Website.Origin != "popular.com" || feed[0].PublicSaveCount != 3 {
		t.Fatalf("first = %s (%d), want popular.com (3)", feed[0].Website.Origin, feed[0].PublicSaveCount)
	}
	if feed[1].Website.Origin != "niche.com" || feed[1].PublicSaveCount != 1 {
		t.Fatalf("second = %s (%d), want niche.com (1)", feed[1].Website.Origin, feed[1].PublicSaveCount)
	}
}

func TestUpsertWebsitePatchesInPlace(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	first, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: "https://example.com/",
		Origin:       "example.com",
		Slug:         "example",
		Title:        "Example",
		Description:  "Old description",
		Categories:   []string{"Tools"},
		FaviconURL:   strptr("https://example.com/favicon.ico"),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: "https://example.com/",
		Origin:       "example.com",
		Title:        "Example, refreshed",
		Description:  "New description",
		Categories:   []string{"Design"},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %s vs %s", second.ID, first.ID)
	}
	if second.Slug != "example" {
		t.Fatalf("slug = %q, empty patch slug must keep the old one", second.Slug)
	}
	if second.Title != "Example, refreshed" || second.Description != "New description" {
		t.Fatalf("metadata not patched: %+v", second)
	}
	if second.FaviconURL == nil || *second.FaviconURL != "https://example.com/favicon.ico" {
		t.Fatal("nil favicon in patch must keep the stored favicon")
	}
}

func TestUpsertWebsiteSuffixesCollidingSlug(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: "https://one.example.com/",
		Origin:       "one.example.com",
		Slug:         "example",
		Title:        "One",
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: "https://two.example.com/",
		Origin:       "two.example.com",
		Slug:         "example",
		Title:        "Two",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Slug == "example" {
		t.Fatal("colliding slug was not suffixed")
	}
	if !strings.HasPrefix(second.Slug, "example-") || len(second.Slug) != len("example-")+4 {
		t.Fatalf("slug = %q, want example-XXXX", second.Slug)
	}
}

func TestEnsureDefaultBoardIsIdempotent(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	first, err := service.EnsureDefaultBoard(ctx, "owner-1")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := service.EnsureDefaultBoard(ctx, "owner-1")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ensure created two boards: %s vs %s", first.ID, second.ID)
	}
}

func TestEnsurePublicBoardReturnsExistingUnchanged(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	board, err := service.EnsurePublicBoard(ctx, "owner-1", "Discover", "discover")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := service.SetBoardVisibility(ctx, "owner-1", board.ID, false); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	again, err := service.EnsurePublicBoard(ctx, "owner-1", "Discover", "discover")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if again.ID != board.ID {
		t.Fatal("ensure created a second board")
	}
	if again.IsPublic {
		t.Fatal("ensure must return the existing board unchanged, not flip it public")
	}
}

func TestGetSimilarWebsitesNeedsCategories(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
		CanonicalURL: "https://plain.com/", Origin: "plain.com", Slug: "plain", Title: "Plain",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	similar, err := service.GetSimilarWebsites(ctx, "plain", 0)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similar) != 0 {
		t.Fatalf("similar = %d items for a category-less seed, want 0", len(similar))
	}

	if _, err := service.GetSimilarWebsites(ctx, "missing", 0); err != nil {
		t.Fatalf("similar for missing slug should be empty, got %v", err)
	}
}

func TestGetSimilarWebsitesMatchesSharedCategory(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	seedSites := []struct {
		slug, category string
	}{
		{"figma", "Design"},
		{"sketch", "Design"},
		{"github", "Dev & Infra"},
	}
	for _, site := range seedSites {
		if _, err := service.UpsertWebsite(ctx, UpsertWebsiteInput{
			CanonicalURL: "https://" + site.slug + ".com/",
			Origin:       site.slug + ".com",
			Slug:         site.slug,
			Title:        site.slug,
			Categories:   []string{site.category},
		}); err != nil {
			t.Fatalf("upsert %s: %v", site.slug, err)
		}
	}

	similar, err := service.GetSimilarWebsites(ctx, "figma", 0)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similar) != 1 || similar[0].Slug != "sketch" {
		t.Fatalf("similar = %+v, want only sketch", similar)
	}
}

func TestListMineFiltersAndLimitsMemberships(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	for _, url := range []string{"alpha.com", "beta.com", "gamma.com"} {
		if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: url}); err != nil {
			t.Fatalf("save %s: %v", url, err)
		}
	}
	if _, err := service.SaveWebsite(ctx, "owner-2", SaveWebsiteInput{URL: "delta.com"}); err != nil {
		t.Fatalf("save for other owner: %v", err)
	}

	mine, err := service.ListMine(ctx, "owner-1", "", "", 0)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("mine = %d sites, want 3", len(mine))
	}

	filtered, err := service.ListMine(ctx, "owner-1", "", "beta", 0)
	if err != nil {
		t.Fatalf("list mine filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Origin != "beta.com" {
		t.Fatalf("filtered = %+v, want beta.com", filtered)
	}
}

func TestListUserWapsPaginatesWithCursor(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	urls := []string{"one.com", "two.com", "three.com", "four.com", "five.com"}
	for _, url := range urls {
		if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: url}); err != nil {
			t.Fatalf("save %s: %v", url, err)
		}
	}

	first, err := service.ListUserWaps(ctx, "owner-1", ListWapsInput{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("first page = %d items, hasMore=%v", len(first.Items), first.HasMore)
	}
	// Newest first.
	if first.Items[0].Website.Origin != "five.com" {
		t.Fatalf("first item = %s, want five.com", first.Items[0].Website.Origin)
	}

	seen := map[string]struct{}{}
	for _, wap := range first.Items {
		seen[wap.Website.Origin] = struct{}{}
	}

	cursor := first.NextCursor
	for cursor != "" {
		page, err := service.ListUserWaps(ctx, "owner-1", ListWapsInput{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("next page: %v", err)
		}
		for _, wap := range page.Items {
			if _, dup := seen[wap.Website.Origin]; dup {
				t.Fatalf("site %s appeared on two pages", wap.Website.Origin)
			}
			seen[wap.Website.Origin] = struct{}{}
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != len(urls) {
		t.Fatalf("paginated %d distinct sites, want %d", len(seen), len(urls))
	}
}

func TestListUserWapsFiltersByTagAndSortsAZ(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	sites := []struct {
		url, category string
	}{
		{"zulu.com", "Design"},
		{"alpha.com", "Design"},
		{"mike.com", "Video"},
	}
	scan := &fakeScanner{results: map[string]scanner.Result{}}
	for _, site := range sites {
		host := site.url
		scan.results[host] = scanner.Result{
			CanonicalURL: "https://" + host + "/",
			Origin:       host,
			Slug:         strings.ReplaceAll(host, ".", "-"),
			Title:        host,
			Description:  host,
			Category:     site.category,
			FaviconURL:   "https://" + host + "/favicon.ico",
		}
	}
	service.scan = scan

	for _, site := range sites {
		if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: site.url}); err != nil {
			t.Fatalf("save %s: %v", site.url, err)
		}
	}

	page, err := service.ListUserWaps(ctx, "owner-1", ListWapsInput{Tag: "design", Sort: "az"})
	if err != nil {
		t.Fatalf("list waps: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("tagged = %d items, want 2", len(page.Items))
	}
	if page.Items[0].Website.Origin != "alpha.com" || page.Items[1].Website.Origin != "zulu.com" {
		t.Fatalf("az order = [%s, %s]", page.Items[0].Website.Origin, page.Items[1].Website.Origin)
	}
}

func TestSeedPublicBoardReportsAddedAndDeduped(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	for _, url := range []string{"one.com", "two.com"} {
		if _, err := service.SaveWebsite(ctx, "someone-else", SaveWebsiteInput{URL: url}); err != nil {
			t.Fatalf("seed site %s: %v", url, err)
		}
	}

	report, err := service.SeedPublicBoard(ctx, "curator", "Discover")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.Added != 2 || report.Deduped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 2 added", report)
	}
	if !report.Board.IsPublic {
		t.Fatal("seed board should be public")
	}

	again, err := service.SeedPublicBoard(ctx, "curator", "Discover")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if again.Added != 0 || again.Deduped != 2 {
		t.Fatalf("second report = %+v, want everything deduped", again)
	}
}

func TestJoinWaitlistIsIdempotentByEmail(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	first, err := service.JoinWaitlist(ctx, JoinWaitlistInput{Email: "Person@Example.com "})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if first.AlreadyJoined {
		t.Fatal("first join flagged as already joined")
	}
	if first.Entry.Email != "person@example.com" {
		t.Fatalf("email not normalized: %q", first.Entry.Email)
	}
	if len(first.Entry.ReferralCode) != 6 || first.Entry.ReferralCode != strings.ToUpper(first.Entry.ReferralCode) {
		t.Fatalf("referral code = %q, want 6 uppercase chars", first.Entry.ReferralCode)
	}
	if first.Position != 1 || first.Total != 1 {
		t.Fatalf("position = %d, total = %d, want 1 and 1", first.Position, first.Total)
	}
	if first.Entry.ID == "" {
		t.Fatal("entry id missing")
	}

	second, err := service.JoinWaitlist(ctx, JoinWaitlistInput{Email: "person@example.com"})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !second.AlreadyJoined {
		t.Fatal("rejoin should report already joined")
	}
	if second.Entry.ReferralCode != first.Entry.ReferralCode {
		t.Fatal("rejoin changed the referral code")
	}
	if second.Total != 1 {
		t.Fatalf("rejoin total = %d, want 1", second.Total)
	}

	stats, err := service.GetWaitlistStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("total = %d, want 1", stats.Total)
	}
}

func TestSignUpAndSignInRoundTrip(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	session, err := service.SignUp(ctx, SignUpInput{Email: "dev@example.com", Password: "correct-horse", Name: "Dev"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if session.Token == "" || session.OwnerKey == "" {
		t.Fatalf("session = %+v, want token and owner key", session)
	}

	parsed, err := service.SessionFromToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.OwnerKey != session.OwnerKey {
		t.Fatalf("owner key = %q, want %q", parsed.OwnerKey, session.OwnerKey)
	}

	if _, err := service.SignUp(ctx, SignUpInput{Email: "dev@example.com", Password: "correct-horse", Name: "Dup"}); err == nil {
		t.Fatal("duplicate sign up should fail")
	} else if domainErr, ok := err.(*DomainError); !ok || domainErr.Code != "EMAIL_TAKEN" {
		t.Fatalf("duplicate sign up = %v, want EMAIL_TAKEN", err)
	}

	if _, err := service.SignIn(ctx, SignInInput{Email: "dev@example.com", Password: "wrong"}); err == nil {
		t.Fatal("wrong password should fail")
	}
	signedIn, err := service.SignIn(ctx, SignInInput{Email: "dev@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signedIn.OwnerKey != session.OwnerKey {
		t.Fatal("sign in returned a different owner key")
	}
}

func strptr(s string) *string { return &s }

type memRefreshStore struct {
	mu       sync.Mutex
	sessions map[string][2]string
}

func newMemRefreshStore() *memRefreshStore {
	return &memRefreshStore{sessions: make(map[string][2]string)}
}

func (m *memRefreshStore) SaveRefreshSession(_ context.Context, tokenHash, ownerKey, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenHash] = [2]string{ownerKey, userID}
	return nil
}

func (m *memRefreshStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[tokenHash]
	if !ok {
		return "", "", fmt.Errorf("token not found or expired")
	}
	return session[0], session[1], nil
}

func (m *memRefreshStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func TestRefreshSessionRotatesAccessToken(t *testing.T) {
	mem := newMemStore()
	cfg := config.Config{
		TokenSecret:   "test-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		PublicBaseURL: "https://waps.test",
	}
	service := New(cfg, mem, &fakeScanner{}, WithSessions(newMemRefreshStore()))
	ctx := context.Background()

	session, err := service.SignUp(ctx, SignUpInput{Email: "dev@example.com", Password: "correct-horse", Name: "Dev"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if session.RefreshToken == "" {
		t.Fatal("no refresh token with a session store wired")
	}

	refreshed, err := service.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.OwnerKey != session.OwnerKey || refreshed.Email != "dev@example.com" {
		t.Fatalf("refreshed = %+v", refreshed)
	}

	if err := service.SignOut(ctx, session.RefreshToken); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := service.RefreshSession(ctx, session.RefreshToken); err == nil {
		t.Fatal("revoked refresh token still works")
	}
}

func TestJoinWaitlistRequiresFullEmailAddress(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	for _, email := range []string{"not-an-email", "a@b", "a @b.com", "@b.com", "a@.com "} {
		if _, err := service.JoinWaitlist(ctx, JoinWaitlistInput{Email: email}); err == nil {
			t.Errorf("email %q accepted", email)
		}
	}
	if _, err := service.JoinWaitlist(ctx, JoinWaitlistInput{Email: "a@b.co"}); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
}

func TestListMineScopesToBoard(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "alpha.com"}); err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	board, err := service.CreateBoard(ctx, "owner-1", CreateBoardInput{Name: "Favorites"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "beta.com", BoardSlug: board.Slug}); err != nil {
		t.Fatalf("save beta: %v", err)
	}

	scoped, err := service.ListMine(ctx, "owner-1", board.ID, "", 0)
	if err != nil {
		t.Fatalf("list mine scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Origin != "beta.com" {
		t.Fatalf("scoped = %+v, want only beta.com", scoped)
	}

	all, err := service.ListMine(ctx, "owner-1", "", "", 0)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unscoped = %d sites, want 2", len(all))
	}
}

func TestRemoveFromBoardFailsWhenBoardMissing(t *testing.T) {
	service, mem := newTestService()
	ctx := context.Background()

	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "example.com"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	mem.mu.Lock()
	delete(mem.boards, result.BoardItem.BoardID)
	mem.mu.Unlock()

	err = service.RemoveFromBoard(ctx, "owner-1", result.BoardItem.ID)
	domainErr, ok := err.(*DomainError)
	if !ok || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("remove with missing board = %v, want NOT_FOUND", err)
	}

	// The membership and counters are untouched.
	item, _ := mem.GetBoardItem(ctx, result.BoardItem.ID)
	if item == nil {
		t.Fatal("membership deleted despite missing board")
	}
	website, _ := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if website.SaveCount != 1 {
		t.Fatalf("saveCount = %d, want 1", website.SaveCount)
	}
}

func TestListUserWapsScopesByBoardSlug(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "alpha.com"}); err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	board, err := service.CreateBoard(ctx, "owner-1", CreateBoardInput{Name: "Favorites"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "beta.com", BoardSlug: board.Slug}); err != nil {
		t.Fatalf("save beta: %v", err)
	}

	scoped, err := service.ListUserWaps(ctx, "owner-1", ListWapsInput{BoardSlug: board.Slug})
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped.Items) != 1 || scoped.Items[0].Website.Origin != "beta.com" {
		t.Fatalf("scoped = %+v, want only beta.com", scoped.Items)
	}

	// A slug matching none of the owner's boards drops the filter.
	unmatched, err := service.ListUserWaps(ctx, "owner-1", ListWapsInput{BoardSlug: "no-such-board"})
	if err != nil {
		t.Fatalf("list unmatched: %v", err)
	}
	if len(unmatched.Items) != 2 {
		t.Fatalf("unmatched slug = %d items, want all 2", len(unmatched.Items))
	}
}

func TestSaveWebsiteRecordsOgImage(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	scan := &fakeScanner{results: map[string]scanner.Result{
		"acme.com": {
			CanonicalURL: "https://acme.com/",
			Origin:       "acme.com",
			Slug:         "acme",
			Title:        "Acme",
			Description:  "Acme",
			Category:     "Tools",
			OgImageURL:   "https://acme.com/og.png",
		},
	}}
	service.scan = scan

	result, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: "acme.com"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	website, err := service.GetWebsiteBySlug(ctx, result.Website.Slug)
	if err != nil {
		t.Fatalf("get website: %v", err)
	}
	if website.OgImageURL == nil || *website.OgImageURL != "https://acme.com/og.png" {
		t.Fatalf("og image = %v", website.OgImageURL)
	}
}

type memSearchIndex struct {
	mu        sync.Mutex
	reindexed []search.WebsiteDoc
}

func (m *memSearchIndex) IndexWebsite(_ context.Context, _ search.WebsiteDoc) error { return nil }

func (m *memSearchIndex) ReindexAll(docs []search.WebsiteDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reindexed = docs
}

func (m *memSearchIndex) Search(_ context.Context, _ string, _ int) ([]search.WebsiteDoc, error) {
	return []search.WebsiteDoc{}, nil
}

func TestReindexSearchPushesEveryWebsite(t *testing.T) {
	mem := newMemStore()
	index := &memSearchIndex{}
	cfg := config.Config{TokenSecret: "test-secret", AccessTTL: time.Hour}
	service := New(cfg, mem, &fakeScanner{}, WithSearch(index))
	ctx := context.Background()

	for _, url := range []string{"one.com", "two.com"} {
		if _, err := service.SaveWebsite(ctx, "owner-1", SaveWebsiteInput{URL: url}); err != nil {
			t.Fatalf("save %s: %v", url, err)
		}
	}

	if err := service.ReindexSearch(ctx); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	index.mu.Lock()
	defer index.mu.Unlock()
	if len(index.reindexed) != 2 {
		t.Fatalf("reindexed %d docs, want 2", len(index.reindexed))
	}
}
