// Package offers derives display and orderability facts from a snapshot of
// ticket type offers. Every function is pure; the caller supplies the time.
package offers

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ms-reservation/internal/locale"
	"ms-reservation/internal/models"
)

// HasOrderableOffers reports whether the listing has anything to show. The
// public endpoint already filters visibility, so this does not.
func HasOrderableOffers(list []models.TicketTypeOffer) bool {
	return len(list) > 0
}

// ParsePrice reads a price leniently: malformed or empty values are zero.
func ParsePrice(p models.Price) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(string(p)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MinDisplayPrice returns the lowest positive effective price, formatted for
// the catalog's locale. When every offer is free it returns the FREE label.
// The second value is false only for an empty list.
func MinDisplayPrice(list []models.TicketTypeOffer, catalog *locale.Catalog) (string, bool) {
	if len(list) == 0 {
		return "", false
	}
	var min decimal.Decimal
	found := false
	for _, o := range list {
		price := ParsePrice(o.EffectivePrice())
		if !price.IsPositive() {
			continue
		}
		if !found || price.LessThan(min) {
			min = price
			found = true
		}
	}
	if !found {
		return catalog.Free(), true
	}
	return catalog.FormatPrice(min), true
}

// FindAtDoorOffer returns the first walk-in offer. At-door offers are often
// flagged as not on sale for advance purchase, so IsOnSale is ignored; an
// explicit zero stock or an explicit IsVisible=false excludes the offer.
func FindAtDoorOffer(list []models.TicketTypeOffer) *models.TicketTypeOffer {
	for i := range list {
		o := &list[i]
		if o.Channel != models.ChannelAtDoor {
			continue
		}
		if o.SoldOut() {
			continue
		}
		if o.IsVisible != nil && !*o.IsVisible {
			continue
		}
		return o
	}
	return nil
}

func IsOrderable(o models.TicketTypeOffer, now time.Time) bool {
	return o.IsOnSale &&
		(o.AvailableStock == nil || *o.AvailableStock > 0) &&
		(o.SaleStartAt == nil || !o.SaleStartAt.After(now)) &&
		(o.SaleEndAt == nil || !o.SaleEndAt.Before(now))
}
