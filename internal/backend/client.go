// Package backend talks to the external ticketing and events APIs. Timeouts
// are left to the injected *http.Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

const (
	maxErrorBody    = 1 << 20
	defaultCurrency = "EUR"
)

// requester carries the shared request plumbing of both API clients.
type requester struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

func (r *requester) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	base, err := url.Parse(r.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", r.baseURL, err)
	}
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid backend path %q: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// do sends one request and decodes a 2xx body into out. Non-2xx responses
// become *RejectedError and transport failures *NetworkError.
func (r *requester) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	target, err := r.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("BACKEND", fmt.Sprintf("%s %s failed: %v", method, target, err))
		return &NetworkError{Op: method + " " + target, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			r.logger.Error("BACKEND", fmt.Sprintf("Failed to close response body: %v", err))
		}
	}(resp.Body)
	r.logger.LogBackend(method, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rej := parseRejection(resp.StatusCode, raw)
		r.logger.Warn("BACKEND", fmt.Sprintf("%s %s rejected with %d: %s", method, target, resp.StatusCode, rej.Message))
		return rej
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Client is the Backend Ticketing API.
type Client struct {
	r requester
}

func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{r: requester{baseURL: strings.TrimSuffix(baseURL, "/"), client: httpClient, logger: log}}
}

// TicketTypes lists the publicly visible offers of an event. token may be empty.
func (c *Client) TicketTypes(ctx context.Context, eventID, token string) ([]models.TicketTypeOffer, error) {
	var list models.OfferList
	path := fmt.Sprintf("/events/%s/ticket-types/", url.PathEscape(eventID))
	if err := c.r.do(ctx, http.MethodGet, path, token, nil, &list); err != nil {
		return nil, err
	}
	for i := range list.Results {
		if list.Results[i].EventID == "" {
			list.Results[i].EventID = eventID
		}
	}
	return list.Results, nil
}

func (c *Client) PurchaseOnline(ctx context.Context, token string, payload models.OnlinePurchasePayload) ([]models.Ticket, error) {
	return c.submit(ctx, "/tickets/purchase/", token, payload)
}

func (c *Client) ReserveTicket(ctx context.Context, token string, payload models.ReservationPayload) (models.Ticket, error) {
	tickets, err := c.submit(ctx, "/tickets/reserve/", token, payload)
	if err != nil {
		return models.Ticket{}, err
	}
	if len(tickets) == 0 {
		return models.Ticket{}, fmt.Errorf("reservation response carried no ticket")
	}
	return tickets[0], nil
}

func (c *Client) PurchaseAtDoor(ctx context.Context, token string, payload models.AtDoorPayload) ([]models.Ticket, error) {
	return c.submit(ctx, "/tickets/at-door/", token, payload)
}

func (c *Client) submit(ctx context.Context, path, token string, payload interface{}) ([]models.Ticket, error) {
	var env models.TicketEnvelope
	if err := c.r.do(ctx, http.MethodPost, path, token, payload, &env); err != nil {
		return nil, err
	}
	tickets := env.All()
	normalizeTickets(tickets)
	return tickets, nil
}

// CurrentTickets pages through the caller's upcoming tickets.
func (c *Client) CurrentTickets(token string) *TicketPager {
	return newTicketPager(c, "/tickets/my/current/", token)
}

// PastTickets pages through the caller's tickets for finished events.
func (c *Client) PastTickets(token string) *TicketPager {
	return newTicketPager(c, "/tickets/my/past/", token)
}

func normalizeTickets(tickets []models.Ticket) {
	for i := range tickets {
		if tickets[i].Currency == "" {
			tickets[i].Currency = defaultCurrency
		}
	}
}

// EventsClient is the Backend Events API.
type EventsClient struct {
	r requester
}

func NewEventsClient(baseURL string, httpClient *http.Client, log *logger.Logger) *EventsClient {
	return &EventsClient{r: requester{baseURL: strings.TrimSuffix(baseURL, "/"), client: httpClient, logger: log}}
}

func (c *EventsClient) GetEvent(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	if err := c.r.do(ctx, http.MethodGet, fmt.Sprintf("/events/%s/", url.PathEscape(slug)), "", nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
