package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-reservation/internal/models"
)

// WalletTicket is the cached copy of one ticket the backend issued to a user.
type WalletTicket struct {
	bun.BaseModel `bun:"table:wallet_tickets,alias:wt"`

	UserID          string    `bun:"user_id,pk" json:"-"`
	TicketID        string    `bun:"ticket_id,pk" json:"id"`
	Code            string    `bun:"code" json:"code"`
	Hash            string    `bun:"hash" json:"hash"`
	EventID         string    `bun:"event_id" json:"event"`
	EventTitle      string    `bun:"event_title" json:"event_title,omitempty"`
	TicketTypeTitle string    `bun:"ticket_type_title" json:"ticket_type_title"`
	HolderName      string    `bun:"holder_name" json:"holder_name"`
	HolderEmail     string    `bun:"holder_email" json:"holder_email"`
	PurchasePrice   string    `bun:"purchase_price" json:"purchase_price"`
	Currency        string    `bun:"currency" json:"currency"`
	Status          string    `bun:"status" json:"status"`
	Past            bool      `bun:"past" json:"past"`
	PurchasedAt     time.Time `bun:"purchased_at" json:"purchased_at"`
	SyncedAt        time.Time `bun:"synced_at" json:"synced_at"`
}

func FromTicket(userID string, t models.Ticket, past bool, syncedAt time.Time) WalletTicket {
	return WalletTicket{
		UserID:          userID,
		TicketID:        t.ID,
		Code:            t.Code,
		Hash:            t.Hash,
		EventID:         t.EventID,
		EventTitle:      t.EventTitle,
		TicketTypeTitle: t.TicketTypeTitle,
		HolderName:      t.HolderName,
		HolderEmail:     t.HolderEmail,
		PurchasePrice:   string(t.PurchasePrice),
		Currency:        t.Currency,
		Status:          string(t.Status),
		Past:            past,
		PurchasedAt:     t.PurchasedAt,
		SyncedAt:        syncedAt,
	}
}

// WalletSync records when a user's wallet was last replaced from the backend.
// A missing row means the wallet is stale.
type WalletSync struct {
	bun.BaseModel `bun:"table:wallet_syncs,alias:ws"`

	UserID   string    `bun:"user_id,pk"`
	SyncedAt time.Time `bun:"synced_at,notnull"`
}

var ErrTicketNotFound = errors.New("ticket not in wallet")

type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// ReplaceForUser swaps the user's cached tickets for the given set and records
// the sync time, in one transaction. An empty set still counts as a sync.
func (s *Store) ReplaceForUser(ctx context.Context, userID string, tickets []WalletTicket, syncedAt time.Time) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*WalletTicket)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear wallet: %w", err)
		}
		if len(tickets) > 0 {
			for i := range tickets {
				tickets[i].UserID = userID
			}
			if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
				return fmt.Errorf("failed to store wallet tickets: %w", err)
			}
		}
		sync := &WalletSync{UserID: userID, SyncedAt: syncedAt}
		if _, err := tx.NewInsert().
			Model(sync).
			On("CONFLICT (user_id) DO UPDATE").
			Set("synced_at = EXCLUDED.synced_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to record wallet sync: %w", err)
		}
		return nil
	})
}

// MarkStale forgets the user's sync time so the next read re-fetches.
func (s *Store) MarkStale(ctx context.Context, userID string) error {
	if _, err := s.db.NewDelete().
		Model((*WalletSync)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark wallet stale: %w", err)
	}
	return nil
}

// ListByUser returns the cached tickets, newest purchase first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]WalletTicket, error) {
	var tickets []WalletTicket
	err := s.db.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		Order("purchased_at DESC", "ticket_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet: %w", err)
	}
	return tickets, nil
}

// HoldsTicketForEvent reports whether the user has a non-cancelled ticket for the event.
func (s *Store) HoldsTicketForEvent(ctx context.Context, userID, eventID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*WalletTicket)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Where("status <> ?", string(models.TicketCancelled)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet: %w", err)
	}
	return exists, nil
}

func (s *Store) FindByHash(ctx context.Context, userID, hash string) (*WalletTicket, error) {
	var ticket WalletTicket
	err := s.db.NewSelect().
		Model(&ticket).
		Where("user_id = ?", userID).
		Where("hash = ?", hash).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	return &ticket, nil
}

// LastSyncedAt is the zero time when the user was never synced or was marked stale.
func (s *Store) LastSyncedAt(ctx context.Context, userID string) (time.Time, error) {
	var sync WalletSync
	err := s.db.NewSelect().
		Model(&sync).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync time: %w", err)
	}
	return sync.SyncedAt, nil
}
