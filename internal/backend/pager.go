package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ms-reservation/internal/models"
)

const maxPages = 500

// TicketPager walks a paginated ticket listing one page per Next call until
// the server stops announcing a next page. It is finite and not restartable;
// create a new pager to read from page one again.
//
//	p := client.CurrentTickets(token)
//	for p.Next(ctx) {
//		use(p.Page().Results)
//	}
//	if err := p.Err(); err != nil { ... }
type TicketPager struct {
	client  *Client
	token   string
	nextURL string
	page    models.TicketPage
	err     error
	fetched int
}

func newTicketPager(c *Client, first, token string) *TicketPager {
	return &TicketPager{client: c, token: token, nextURL: first}
}

func (p *TicketPager) Next(ctx context.Context) bool {
	if p.err != nil || p.nextURL == "" {
		return false
	}
	if p.fetched >= maxPages {
		p.err = ErrTooManyPages
		return false
	}

	current, err := p.client.r.resolve(p.nextURL)
	if err != nil {
		p.err = err
		return false
	}
	var page models.TicketPage
	if err := p.client.r.do(ctx, http.MethodGet, current, p.token, nil, &page); err != nil {
		p.err = err
		return false
	}
	normalizeTickets(page.Results)
	p.fetched++
	p.page = page
	p.nextURL = ""
	if page.HasNext() {
		next, err := resolveNext(current, *page.Next)
		if err != nil {
			p.err = err
			return true
		}
		p.nextURL = next
	}
	return true
}

// resolveNext resolves the server's next link against the page it came from.
func resolveNext(current, next string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", current, err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (p *TicketPager) Page() models.TicketPage { return p.page }

func (p *TicketPager) Err() error { return p.err }

// CollectAll drains the pager.
func CollectAll(ctx context.Context, p *TicketPager) ([]models.Ticket, error) {
	var all []models.Ticket
	for p.Next(ctx) {
		all = append(all, p.Page().Results...)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
