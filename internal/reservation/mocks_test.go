package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"ms-reservation/internal/intent"
	"ms-reservation/internal/models"
)

type MockTicketingAPI struct {
	mock.Mock
}

func (m *MockTicketingAPI) TicketTypes(ctx context.Context, eventID, token string) ([]models.TicketTypeOffer, error) {
	args := m.Called(ctx, eventID, token)
	offers, _ := args.Get(0).([]models.TicketTypeOffer)
	return offers, args.Error(1)
}

func (m *MockTicketingAPI) PurchaseOnline(ctx context.Context, token string, payload models.OnlinePurchasePayload) ([]models.Ticket, error) {
	args := m.Called(ctx, token, payload)
	tickets, _ := args.Get(0).([]models.Ticket)
	return tickets, args.Error(1)
}

func (m *MockTicketingAPI) ReserveTicket(ctx context.Context, token string, payload models.ReservationPayload) (models.Ticket, error) {
	args := m.Called(ctx, token, payload)
	return args.Get(0).(models.Ticket), args.Error(1)
}

func (m *MockTicketingAPI) PurchaseAtDoor(ctx context.Context, token string, payload models.AtDoorPayload) ([]models.Ticket, error) {
	args := m.Called(ctx, token, payload)
	tickets, _ := args.Get(0).([]models.Ticket)
	return tickets, args.Error(1)
}

type MockIntentStore struct {
	mock.Mock
}

func (m *MockIntentStore) Save(ctx context.Context, sessionKey string, in intent.ResumableIntent) error {
	return m.Called(ctx, sessionKey, in).Error(0)
}

func (m *MockIntentStore) Consume(ctx context.Context, sessionKey string) (intent.ResumableIntent, error) {
	args := m.Called(ctx, sessionKey)
	return args.Get(0).(intent.ResumableIntent), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSubmission(ctx context.Context, event models.SubmissionEvent) error {
	return m.Called(ctx, event).Error(0)
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots map[string][]models.TicketTypeOffer
}

func newRecordingSink() *recordingSink {
	return &recordingSink{snapshots: map[string][]models.TicketTypeOffer{}}
}

func (r *recordingSink) PublishOffers(eventID string, offers []models.TicketTypeOffer, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[eventID] = offers
}

type recordingWallet struct {
	mu          sync.Mutex
	invalidated []string
}

func (w *recordingWallet) Invalidate(_ context.Context, userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invalidated = append(w.invalidated, userID)
	return nil
}

func (w *recordingWallet) users() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.invalidated...)
}

func (r *recordingSink) get(eventID string) ([]models.TicketTypeOffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offers, ok := r.snapshots[eventID]
	return offers, ok
}
