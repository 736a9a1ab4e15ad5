// Package wallet keeps a read-only cache of the tickets a user holds. The
// backend stays the source of truth; the cache is only ever replaced wholesale
// by an explicit re-fetch.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-reservation/internal/backend"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

const DefaultMaxAge = 5 * time.Minute

var ErrUnauthenticated = errors.New("wallet requires a logged in user")

type TicketSource interface {
	CurrentTickets(token string) *backend.TicketPager
	PastTickets(token string) *backend.TicketPager
}

type Service struct {
	store  *Store
	source TicketSource
	clock  clock.Clock
	maxAge time.Duration
	logger *logger.Logger
}

func NewService(store *Store, source TicketSource, clk clock.Clock, maxAge time.Duration, log *logger.Logger) *Service {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Service{store: store, source: source, clock: clk, maxAge: maxAge, logger: log}
}

// Sync pulls every current and past ticket page and replaces the cache.
func (s *Service) Sync(ctx context.Context, session models.Session) ([]WalletTicket, error) {
	if !session.Authenticated() || session.UserID == "" {
		return nil, ErrUnauthenticated
	}
	current, err := backend.CollectAll(ctx, s.source.CurrentTickets(session.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current tickets: %w", err)
	}
	past, err := backend.CollectAll(ctx, s.source.PastTickets(session.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch past tickets: %w", err)
	}

	now := s.clock.Now()
	rows := make([]WalletTicket, 0, len(current)+len(past))
	seen := make(map[string]bool, cap(rows))
	for _, t := range current {
		if !seen[t.ID] {
			seen[t.ID] = true
			rows = append(rows, FromTicket(session.UserID, t, false, now))
		}
	}
	for _, t := range past {
		if !seen[t.ID] {
			seen[t.ID] = true
			rows = append(rows, FromTicket(session.UserID, t, true, now))
		}
	}

	if err := s.store.ReplaceForUser(ctx, session.UserID, rows, now); err != nil {
		return nil, err
	}
	s.logger.LogDatabase("SYNC", "wallet_tickets", fmt.Sprintf("user=%s tickets=%d", session.UserID, len(rows)))
	return s.store.ListByUser(ctx, session.UserID)
}

// Tickets returns the cached wallet, syncing first when it is stale.
func (s *Service) Tickets(ctx context.Context, session models.Session) ([]WalletTicket, error) {
	if err := s.ensureFresh(ctx, session); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, session.UserID)
}

// HoldsTicket answers "do I already hold a ticket for this event" from the
// cache, syncing first when it is stale.
func (s *Service) HoldsTicket(ctx context.Context, session models.Session, eventID string) (bool, error) {
	if err := s.ensureFresh(ctx, session); err != nil {
		return false, err
	}
	return s.store.HoldsTicketForEvent(ctx, session.UserID, eventID)
}

// FindByHash looks the ticket up in the cache. A miss only triggers a sync when
// the cache is stale, so unknown hashes cannot drive backend traffic.
func (s *Service) FindByHash(ctx context.Context, session models.Session, hash string) (*WalletTicket, error) {
	if !session.Authenticated() || session.UserID == "" {
		return nil, ErrUnauthenticated
	}
	ticket, err := s.store.FindByHash(ctx, session.UserID, hash)
	if !errors.Is(err, ErrTicketNotFound) {
		return ticket, err
	}
	fresh, err := s.fresh(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if fresh {
		return nil, ErrTicketNotFound
	}
	if _, err := s.Sync(ctx, session); err != nil {
		return nil, err
	}
	return s.store.FindByHash(ctx, session.UserID, hash)
}

// Invalidate marks the user's wallet stale after a mutation on the backend.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.store.MarkStale(ctx, userID)
}

func (s *Service) fresh(ctx context.Context, userID string) (bool, error) {
	last, err := s.store.LastSyncedAt(ctx, userID)
	if err != nil {
		return false, err
	}
	return !last.IsZero() && s.clock.Now().Sub(last) < s.maxAge, nil
}

func (s *Service) ensureFresh(ctx context.Context, session models.Session) error {
	if !session.Authenticated() || session.UserID == "" {
		return ErrUnauthenticated
	}
	fresh, err := s.fresh(ctx, session.UserID)
	if err != nil || fresh {
		return err
	}
	_, err = s.Sync(ctx, session)
	return err
}
