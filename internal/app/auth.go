package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"waps/api/internal/auth"
	"waps/api/internal/authpw"
	"waps/api/internal/util"
)

// Session is an authenticated caller: an access token scoped to an
// owner key, plus a refresh token when a session store is wired.
type Session struct {
	Token        string
	RefreshToken string
	OwnerKey     string
	UserID       string
	Email        string
	Name         string
	ExpiresAt    time.Time
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) accounts() *authpw.Service {
	return authpw.NewService(s.store, func() string { return util.NewID("usr") })
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (Session, error) {
	user, err := s.accounts().SignUp(ctx, input.Email, input.Password, input.Name)
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return Session{}, conflict("EMAIL_TAKEN", "This email is already registered")
		}
		return Session{}, invalid(err.Error())
	}
	return s.issueSession(ctx, user.ID, user.Email, user.Name)
}

func (s *Service) SignIn(ctx context.Context, input SignInInput) (Session, error) {
	user, err := s.accounts().SignIn(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user.ID, user.Email, user.Name)
}

// issueSession mints an access token. The owner key for an account is
// its user id, so anonymous saves migrate by re-keying memberships.
func (s *Service) issueSession(ctx context.Context, userID, email, name string) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   userID,
		Owner: userID,
		Name:  name,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	session := Session{
		Token:     token,
		OwnerKey:  userID,
		UserID:    userID,
		Email:     email,
		Name:      name,
		ExpiresAt: expiresAt,
	}

	if s.sessions != nil {
		refreshToken, err := randomToken()
		if err != nil {
			return Session{}, err
		}
		refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
		if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), userID, userID, refreshExpiry); err != nil {
			return Session{}, fmt.Errorf("save refresh session: %w", err)
		}
		session.RefreshToken = refreshToken
	}

	return session, nil
}

// RefreshSession trades a live refresh token for a new access token.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	ownerKey, userID, err := s.sessions.LookupRefreshSession(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	email, name := "", ""
	if userID != "" {
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return Session{}, err
		}
		if user != nil {
			email, name = user.Email, user.Name
		}
	}

	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   userID,
		Owner: ownerKey,
		Name:  name,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		OwnerKey:     ownerKey,
		UserID:       userID,
		Email:        email,
		Name:         name,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if s.sessions == nil || refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken verifies an access token and rebuilds the caller's
// session view. No storage round trip.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		OwnerKey:  claims.Owner,
		UserID:    claims.Sub,
		Name:      claims.Name,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
