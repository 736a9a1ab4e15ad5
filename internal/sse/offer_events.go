package sse

import (
	"context"
	"sync"
	"time"

	"ms-reservation/internal/models"
)

const clientBuffer = 10

// Snapshot is a freshly fetched offer list of one event.
type Snapshot struct {
	EventID   string                   `json:"event_id"`
	Offers    []models.TicketTypeOffer `json:"offers"`
	FetchedAt time.Time                `json:"fetched_at"`
}

// OfferEventEmitter fans refreshed offer snapshots out to the streams watching
// an event.
type OfferEventEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan Snapshot
}

func NewOfferEventEmitter() *OfferEventEmitter {
	return &OfferEventEmitter{clients: make(map[string][]chan Snapshot)}
}

// Subscribe registers a stream for eventID. The channel is closed once ctx is done.
func (e *OfferEventEmitter) Subscribe(ctx context.Context, eventID string) <-chan Snapshot {
	ch := make(chan Snapshot, clientBuffer)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, ch)
	}()
	return ch
}

// PublishOffers sends the snapshot to every subscriber of the event. Slow
// subscribers with a full buffer miss it; the next snapshot supersedes it anyway.
func (e *OfferEventEmitter) PublishOffers(eventID string, offers []models.TicketTypeOffer, fetchedAt time.Time) {
	snap := Snapshot{EventID: eventID, Offers: offers, FetchedAt: fetchedAt}

	// sends happen under the read lock so remove cannot close a channel mid-send
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.clients[eventID] {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *OfferEventEmitter) remove(eventID string, ch chan Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, c := range clients {
		if c == ch {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

func (e *OfferEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
