package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Channel is the sales mode of an offer. It decides which submission endpoint
// and which call-to-action apply.
type Channel string

const (
	ChannelOnline      Channel = "ONLINE"
	ChannelReservation Channel = "RESERVATION"
	ChannelAtDoor      Channel = "AT_DOOR"
)

// ParseChannel accepts the upper and lower case spellings the backend has used
// ("at_door", "AT-DOOR", "online"). Unknown values come back unchanged, upper cased.
func ParseChannel(s string) Channel {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "ATDOOR", "DOOR":
		return ChannelAtDoor
	case "SALE", "PURCHASE":
		return ChannelOnline
	case "RESERVE":
		return ChannelReservation
	}
	return Channel(normalized)
}

func (c *Channel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ParseChannel(s)
	return nil
}

// Price is a decimal amount kept as the text the server sent. The backend emits
// both JSON strings and numbers; both decode here, and null decodes to "".
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	*p = Price(b)
	return nil
}

func (p Price) String() string { return string(p) }

// Localized holds one text per locale. A plain JSON string decodes under the
// empty locale key.
type Localized map[string]string

func (l *Localized) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Localized{"": s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

// In returns the text for locale, falling back to Spanish, English, the
// untagged text and finally the alphabetically first locale.
func (l Localized) In(locale string) string {
	for _, key := range []string{locale, baseLanguage(locale), "es", "en", ""} {
		if v, ok := l[key]; ok && v != "" {
			return v
		}
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

func baseLanguage(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}

// PriceScale is one step of a tiered price list. Exactly one threshold is set.
type PriceScale struct {
	ThresholdDate  *time.Time `json:"threshold_date,omitempty"`
	ThresholdSales *int       `json:"threshold_sales,omitempty"`
	Price          Price      `json:"price"`
}

// TicketTypeOffer is one purchasable, reservable or registrable ticket category.
// The server owns it; the gateway only reads and re-reads it.
type TicketTypeOffer struct {
	ID               string       `json:"id"`
	EventID          string       `json:"event,omitempty"`
	Title            Localized    `json:"title"`
	Description      Localized    `json:"description,omitempty"`
	Channel          Channel      `json:"channel"`
	BasePrice        Price        `json:"base_price"`
	CurrentPrice     Price        `json:"current_price,omitempty"`
	AvailableStock   *int         `json:"available_stock"`
	IsOnSale         bool         `json:"is_on_sale"`
	IsVisible        *bool        `json:"is_visible,omitempty"`
	SaleStartAt      *time.Time   `json:"sale_start_at,omitempty"`
	SaleEndAt        *time.Time   `json:"sale_end_at,omitempty"`
	RequiresPhone    bool         `json:"requires_phone"`
	RequiresGender   bool         `json:"requires_gender"`
	RequiresRole     bool         `json:"requires_role"`
	RequiresDocument bool         `json:"requires_document"`
	RequiresCountry  bool         `json:"requires_country"`
	RequiresCity     bool         `json:"requires_city"`
	PriceScales      []PriceScale `json:"price_scales,omitempty"`
}

// EffectivePrice is the current price when the server sent one, the base price otherwise.
func (o TicketTypeOffer) EffectivePrice() Price {
	if o.CurrentPrice != "" {
		return o.CurrentPrice
	}
	return o.BasePrice
}

// Unlimited reports whether the offer has no stock cap.
func (o TicketTypeOffer) Unlimited() bool {
	return o.AvailableStock == nil
}

// SoldOut reports an explicit zero stock.
func (o TicketTypeOffer) SoldOut() bool {
	return !o.Unlimited() && *o.AvailableStock <= 0
}

// OfferList is the ticket type listing envelope.
type OfferList struct {
	Results []TicketTypeOffer `json:"results"`
}
