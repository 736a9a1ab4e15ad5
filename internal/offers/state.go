package offers

import (
	"time"

	"ms-reservation/internal/locale"
	"ms-reservation/internal/models"
)

type BlockReason string

const (
	ReasonNone       BlockReason = ""
	ReasonSoldOut    BlockReason = "sold_out"
	ReasonNotOnSale  BlockReason = "not_on_sale"
	ReasonNotStarted BlockReason = "not_started"
	ReasonEnded      BlockReason = "ended"
)

type Action string

const (
	ActionBuy      Action = "buy"
	ActionReserve  Action = "reserve"
	ActionRegister Action = "register"
)

// OfferState is what a client needs to render one offer's button.
type OfferState struct {
	OfferID   string      `json:"offer_id"`
	Channel   string      `json:"channel"`
	Orderable bool        `json:"orderable"`
	Reason    BlockReason `json:"reason,omitempty"`
	Action    Action      `json:"action"`
	Price     string      `json:"price"`
	Stock     *int        `json:"available_stock"`
}

// ActionFor maps a channel to its call to action.
func ActionFor(c models.Channel) Action {
	switch c {
	case models.ChannelReservation:
		return ActionReserve
	case models.ChannelAtDoor:
		return ActionRegister
	default:
		return ActionBuy
	}
}

// blockReason explains why IsOrderable is false. Stock wins over sale windows,
// which win over the on-sale flag.
func blockReason(o models.TicketTypeOffer, now time.Time) BlockReason {
	switch {
	case o.SoldOut():
		return ReasonSoldOut
	case o.SaleStartAt != nil && o.SaleStartAt.After(now):
		return ReasonNotStarted
	case o.SaleEndAt != nil && o.SaleEndAt.Before(now):
		return ReasonEnded
	case !o.IsOnSale:
		return ReasonNotOnSale
	}
	return ReasonNone
}

func Classify(list []models.TicketTypeOffer, now time.Time, catalog *locale.Catalog) []OfferState {
	states := make([]OfferState, 0, len(list))
	for _, o := range list {
		orderable := IsOrderable(o, now)
		st := OfferState{
			OfferID:   o.ID,
			Channel:   string(o.Channel),
			Orderable: orderable,
			Action:    ActionFor(o.Channel),
			Stock:     o.AvailableStock,
		}
		if !orderable {
			st.Reason = blockReason(o, now)
		}
		if price := ParsePrice(o.EffectivePrice()); price.IsPositive() {
			st.Price = catalog.FormatPrice(price)
		} else {
			st.Price = catalog.Free()
		}
		states = append(states, st)
	}
	return states
}

// Summary aggregates the resolver output for one event listing.
type Summary struct {
	HasOffers     bool                    `json:"has_offers"`
	MinPrice      *string                 `json:"min_price"`
	AtDoorOffer   *models.TicketTypeOffer `json:"at_door_offer"`
	AnyOrderable  bool                    `json:"any_orderable"`
	States        []OfferState            `json:"states"`
	ResolvedAt    time.Time               `json:"resolved_at"`
	DisplayLocale string                  `json:"locale"`
}

func Summarize(list []models.TicketTypeOffer, now time.Time, catalog *locale.Catalog) Summary {
	s := Summary{
		HasOffers:     HasOrderableOffers(list),
		AtDoorOffer:   FindAtDoorOffer(list),
		States:        Classify(list, now, catalog),
		ResolvedAt:    now,
		DisplayLocale: catalog.Lang(),
	}
	if price, ok := MinDisplayPrice(list, catalog); ok {
		s.MinPrice = &price
	}
	for _, st := range s.States {
		if st.Orderable {
			s.AnyOrderable = true
			break
		}
	}
	return s
}
