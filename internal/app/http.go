package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"waps/api/internal/auth"
	"waps/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no owner key required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleRefresh(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signout" {
		s.handleSignOut(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"ownerKey":      session.OwnerKey,
			"userId":        session.UserID,
			"name":          session.Name,
		})
		return
	}

	// Public discovery routes
	if r.Method == http.MethodGet && r.URL.Path == "/api/explore" {
		s.handleExplore(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/websites" {
		s.handleListWebsites(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/websites/") {
		rest := strings.TrimPrefix(r.URL.Path, "/api/websites/")
		if slug, ok := strings.CutSuffix(rest, "/similar"); ok && !strings.Contains(slug, "/") {
			s.handleSimilar(w, r, slug)
			return
		}
		if !strings.Contains(rest, "/") {
			s.handleWebsiteDetails(w, r, rest)
			return
		}
	}

	// Waitlist
	if r.Method == http.MethodPost && r.URL.Path == "/api/waitlist/join" {
		s.handleWaitlistJoin(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/waitlist/stats" {
		s.handleWaitlistStats(w, r)
		return
	}

	// Everything below is scoped to an owner key
	ownerKey := s.ownerKey(r)

	if r.Method == http.MethodPost && r.URL.Path == "/api/websites" {
		s.handleSaveWebsite(w, r, ownerKey)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/waps" {
		s.handleListWaps(w, r, ownerKey)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/mine" {
		s.handleListMine(w, r, ownerKey)
		return
	}

	if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/waps/") {
		boardItemID := strings.TrimPrefix(r.URL.Path, "/api/waps/")
		s.handleRemoveWap(w, r, ownerKey, boardItemID)
		return
	}

	if r.URL.Path == "/api/boards" {
		switch r.Method {
		case http.MethodGet:
			s.handleListBoards(w, r, ownerKey)
			return
		case http.MethodPost:
			s.handleCreateBoard(w, r, ownerKey)
			return
		}
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/boards/seed" {
		s.handleSeedPublicBoard(w, r, ownerKey)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/boards/") {
		rest := strings.TrimPrefix(r.URL.Path, "/api/boards/")
		if boardID, ok := strings.CutSuffix(rest, "/items"); ok && r.Method == http.MethodPost {
			s.handleAddToBoard(w, r, ownerKey, boardID)
			return
		}
		if !strings.Contains(rest, "/") {
			switch r.Method {
			case http.MethodGet:
				s.handleGetBoard(w, r, ownerKey, rest)
				return
			case http.MethodPatch:
				s.handleBoardVisibility(w, r, ownerKey, rest)
				return
			}
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// ownerKey resolves the caller's owner key: a verified bearer token
// wins, an anonymous X-Owner-Key header otherwise.
func (s *HTTPServer) ownerKey(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err == nil {
			return session.OwnerKey
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Owner-Key"))
}

func requireOwner(w http.ResponseWriter, ownerKey string) bool {
	if ownerKey == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "An owner key or session is required", nil)
		return false
	}
	return true
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var input SignUpInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignUp(r.Context(), input)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var input SignInInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), input)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(session))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.RefreshSession(r.Context(), input.RefreshToken)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(session))
}

func (s *HTTPServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SignOut(r.Context(), input.RefreshToken); err != nil {
		log.Printf("sign out: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleExplore(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	items, err := s.service.ExploreFeed(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entry := websiteJSON(item.Website)
		entry["publicSaveCount"] = item.PublicSaveCount
		payload = append(payload, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": payload})
}

func (s *HTTPServer) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	minSaveCount, ok := queryInt(w, r, "minSaveCount")
	if !ok {
		return
	}
	websites, err := s.service.ListAllWebsites(r.Context(), ListWebsitesInput{
		Query:        r.URL.Query().Get("q"),
		Sort:         r.URL.Query().Get("sort"),
		MinSaveCount: minSaveCount,
		Limit:        limit,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": websitesJSON(websites)})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	docs, err := s.service.SearchWebsites(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": docs})
}

func (s *HTTPServer) handleWebsiteDetails(w http.ResponseWriter, r *http.Request, slug string) {
	details, err := s.service.GetWebsiteDetails(r.Context(), slug, s.ownerKey(r))
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	payload := websiteJSON(details.Website)
	payload["isSaved"] = details.IsSaved
	if details.BoardItemID != "" {
		payload["boardItemId"] = details.BoardItemID
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSimilar(w http.ResponseWriter, r *http.Request, slug string) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	websites, err := s.service.GetSimilarWebsites(r.Context(), slug, limit)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": websitesJSON(websites)})
}

func (s *HTTPServer) handleSaveWebsite(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	var input SaveWebsiteInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.SaveWebsite(r.Context(), ownerKey, input)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"website":   websiteJSON(result.Website),
		"boardItem": boardItemJSON(result.BoardItem),
		"deduped":   result.Deduped,
	})
}

func (s *HTTPServer) handleListWaps(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	page, err := s.service.ListUserWaps(r.Context(), ownerKey, ListWapsInput{
		BoardSlug: r.URL.Query().Get("board"),
		Query:     r.URL.Query().Get("q"),
		Tag:       r.URL.Query().Get("tag"),
		Sort:      r.URL.Query().Get("sort"),
		Limit:     limit,
		Cursor:    r.URL.Query().Get("cursor"),
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	items := make([]map[string]any, 0, len(page.Items))
	for _, wap := range page.Items {
		entry := websiteJSON(wap.Website)
		entry["boardItemId"] = wap.BoardItem.ID
		entry["boardId"] = wap.BoardItem.BoardID
		entry["savedAt"] = wap.BoardItem.CreatedAt
		items = append(items, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"waps":       items,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func (s *HTTPServer) handleListMine(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	websites, err := s.service.ListMine(r.Context(), ownerKey, r.URL.Query().Get("board"), r.URL.Query().Get("q"), limit)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": websitesJSON(websites)})
}

func (s *HTTPServer) handleRemoveWap(w http.ResponseWriter, r *http.Request, ownerKey, boardItemID string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	if err := s.service.RemoveFromBoard(r.Context(), ownerKey, boardItemID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListBoards(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	boards, err := s.service.ListBoards(r.Context(), ownerKey)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	payload := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		payload = append(payload, boardJSON(board))
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": payload})
}

func (s *HTTPServer) handleCreateBoard(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	var input CreateBoardInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	board, err := s.service.CreateBoard(r.Context(), ownerKey, input)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, boardJSON(board))
}

func (s *HTTPServer) handleGetBoard(w http.ResponseWriter, r *http.Request, ownerKey, boardID string) {
	board, err := s.service.GetBoard(r.Context(), ownerKey, boardID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, boardJSON(board))
}

func (s *HTTPServer) handleBoardVisibility(w http.ResponseWriter, r *http.Request, ownerKey, boardID string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	var input struct {
		IsPublic *bool `json:"isPublic"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if input.IsPublic == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "isPublic is required", nil)
		return
	}
	board, err := s.service.SetBoardVisibility(r.Context(), ownerKey, boardID, *input.IsPublic)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, boardJSON(board))
}

func (s *HTTPServer) handleAddToBoard(w http.ResponseWriter, r *http.Request, ownerKey, boardID string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	var input struct {
		WebsiteID string `json:"websiteId"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if input.WebsiteID == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "websiteId is required", nil)
		return
	}
	item, deduped, err := s.service.AddToBoard(r.Context(), ownerKey, boardID, input.WebsiteID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boardItem": boardItemJSON(item),
		"deduped":   deduped,
	})
}

func (s *HTTPServer) handleSeedPublicBoard(w http.ResponseWriter, r *http.Request, ownerKey string) {
	if !requireOwner(w, ownerKey) {
		return
	}
	var input struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	report, err := s.service.SeedPublicBoard(r.Context(), ownerKey, input.Name)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"board":   boardJSON(report.Board),
		"added":   report.Added,
		"deduped": report.Deduped,
		"failed":  report.Failed,
	})
}

func (s *HTTPServer) handleWaitlistJoin(w http.ResponseWriter, r *http.Request) {
	var input JoinWaitlistInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	status, err := s.service.JoinWaitlist(r.Context(), input)
	if err != nil {
		httpStatus, code, message, details := mapError(err)
		writeError(w, httpStatus, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            status.Entry.ID,
		"email":         status.Entry.Email,
		"referralCode":  status.Entry.ReferralCode,
		"position":      status.Position,
		"total":         status.Total,
		"alreadyJoined": status.AlreadyJoined,
	})
}

func (s *HTTPServer) handleWaitlistStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetWaitlistStats(r.Context())
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": stats.Total})
}

func websiteJSON(website store.Website) map[string]any {
	payload := map[string]any{
		"id":              website.ID,
		"slug":            website.Slug,
		"title":           website.Title,
		"description":     website.Description,
		"origin":          website.Origin,
		"canonicalUrl":    website.CanonicalURL,
		"categories":      website.Categories,
		"saveCount":       website.SaveCount,
		"publicSaveCount": website.PublicSaveCount,
		"createdAt":       website.CreatedAt,
		"updatedAt":       website.UpdatedAt,
	}
	if website.Categories == nil {
		payload["categories"] = []string{}
	}
	if website.FaviconURL != nil {
		payload["faviconUrl"] = *website.FaviconURL
	}
	if website.OgImageURL != nil {
		payload["ogImageUrl"] = *website.OgImageURL
	}
	return payload
}

func websitesJSON(websites []store.Website) []map[string]any {
	payload := make([]map[string]any, 0, len(websites))
	for _, website := range websites {
		payload = append(payload, websiteJSON(website))
	}
	return payload
}

func boardJSON(board store.Board) map[string]any {
	return map[string]any{
		"id":        board.ID,
		"ownerKey":  board.OwnerKey,
		"name":      board.Name,
		"slug":      board.Slug,
		"isPublic":  board.IsPublic,
		"createdAt": board.CreatedAt,
		"updatedAt": board.UpdatedAt,
	}
}

func boardItemJSON(item store.BoardItem) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"ownerKey":  item.OwnerKey,
		"boardId":   item.BoardID,
		"websiteId": item.WebsiteID,
		"createdAt": item.CreatedAt,
	}
}

func sessionJSON(session Session) map[string]any {
	payload := map[string]any{
		"token":     session.Token,
		"ownerKey":  session.OwnerKey,
		"userId":    session.UserID,
		"email":     session.Email,
		"name":      session.Name,
		"expiresAt": session.ExpiresAt,
	}
	if session.RefreshToken != "" {
		payload["refreshToken"] = session.RefreshToken
	}
	return payload
}

// queryInt parses an optional integer query param; 0 means absent.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be an integer", nil)
		return 0, false
	}
	return value, true
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

func setCORSHeaders(header http.Header, origin string) {
	header.Set("Access-Control-Allow-Origin", origin)
	header.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Owner-Key, X-Request-ID")
}

func randomRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
