package app

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"waps/api/internal/store"
	"waps/api/internal/util"
)

type JoinWaitlistInput struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Ref    string `json:"ref"`
}

type WaitlistStatus struct {
	Entry         store.WaitlistEntry
	Position      int
	Total         int
	AlreadyJoined bool
}

type WaitlistStats struct {
	Total int
}

const referralCodeAttempts = 5

// waitlistEmailRe requires local@domain.tld with no whitespace; a bare
// local@host is rejected.
var waitlistEmailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// JoinWaitlist registers an email on the waitlist. Joining twice with
// the same address (case- and whitespace-insensitive) returns the
// original entry and its current position. Position is the count of
// entries created at or before this one; Total counts every entry.
func (s *Service) JoinWaitlist(ctx context.Context, input JoinWaitlistInput) (WaitlistStatus, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !waitlistEmailRe.MatchString(email) {
		return WaitlistStatus{}, invalid("a valid email is required")
	}

	existing, err := s.store.GetWaitlistByEmail(ctx, email)
	if err != nil {
		return WaitlistStatus{}, err
	}
	if existing != nil {
		return s.waitlistStatus(ctx, *existing, true)
	}

	code, err := s.newReferralCode(ctx)
	if err != nil {
		return WaitlistStatus{}, err
	}

	entry, err := s.store.InsertWaitlistEntry(ctx, store.WaitlistEntry{
		ID:           util.NewID("wl"),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Source:       strings.TrimSpace(input.Source),
		Ref:          strings.TrimSpace(input.Ref),
		ReferralCode: code,
	})
	if err != nil {
		return WaitlistStatus{}, err
	}

	s.sendWaitlistWelcome(entry)

	return s.waitlistStatus(ctx, entry, false)
}

func (s *Service) waitlistStatus(ctx context.Context, entry store.WaitlistEntry, alreadyJoined bool) (WaitlistStatus, error) {
	position, err := s.store.CountWaitlistAtOrBefore(ctx, entry.CreatedAt)
	if err != nil {
		return WaitlistStatus{}, err
	}
	total, err := s.store.CountWaitlist(ctx)
	if err != nil {
		return WaitlistStatus{}, err
	}
	return WaitlistStatus{Entry: entry, Position: position, Total: total, AlreadyJoined: alreadyJoined}, nil
}

// newReferralCode draws short uppercase codes until one is free, then
// gives up and derives one from the clock. The UNIQUE constraint on
// referral_code backstops the remaining race.
func (s *Service) newReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code := strings.ToUpper(util.RandomSuffix(6))
		taken, err := s.store.GetWaitlistByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if taken == nil {
			return code, nil
		}
	}
	return strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)), nil
}

func (s *Service) sendWaitlistWelcome(entry store.WaitlistEntry) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	referralURL := s.cfg.PublicBaseURL + "/?ref=" + entry.ReferralCode
	go func() {
		if err := s.email.SendWaitlistWelcome(entry.Email, entry.Name, referralURL); err != nil {
			log.Printf("send waitlist welcome to %s: %v", entry.Email, err)
		}
	}()
}

func (s *Service) GetWaitlistStats(ctx context.Context) (WaitlistStats, error) {
	total, err := s.store.CountWaitlist(ctx)
	if err != nil {
		return WaitlistStats{}, err
	}
	return WaitlistStats{Total: total}, nil
}
