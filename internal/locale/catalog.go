// Package locale holds the few user-facing strings the reservation core needs.
// The locale is chosen per request and passed explicitly; there is no global
// current language.
package locale

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	Spanish = "es"
	English = "en"
)

const (
	KeyFree             = "free"
	KeyAuthRequired     = "auth_required"
	KeyNetwork          = "network"
	KeyServerRejected   = "server_rejected"
	KeyQuantityRange    = "quantity_range"
	KeyQuantityMismatch = "quantity_mismatch"
	KeyTermsRequired    = "terms_required"
	KeyInvalidAttendee  = "invalid_attendee"
	KeyInFlight         = "in_flight"
	KeyUnexpected       = "unexpected"
	KeyOfferNotFound    = "offer_not_found"
)

var messages = map[string]map[string]string{
	Spanish: {
		KeyFree:             "GRATIS",
		KeyAuthRequired:     "Inicia sesión para continuar con tu reserva.",
		KeyNetwork:          "No se pudo conectar con el servidor. Inténtalo de nuevo.",
		KeyServerRejected:   "No se pudo completar la operación.",
		KeyQuantityRange:    "La cantidad debe estar entre %d y %s.",
		KeyQuantityMismatch: "Se esperaban %d asistentes y se recibieron %d.",
		KeyTermsRequired:    "Debes aceptar los términos y condiciones.",
		KeyInvalidAttendee:  "Asistente %d: %s",
		KeyInFlight:         "Ya hay una solicitud en curso.",
		KeyUnexpected:       "Ha ocurrido un error inesperado.",
		KeyOfferNotFound:    "Esta entrada ya no está disponible.",
	},
	English: {
		KeyFree:             "FREE",
		KeyAuthRequired:     "Log in to continue with your booking.",
		KeyNetwork:          "Could not reach the server. Please try again.",
		KeyServerRejected:   "The operation could not be completed.",
		KeyQuantityRange:    "Quantity must be between %d and %s.",
		KeyQuantityMismatch: "Expected %d attendees but got %d.",
		KeyTermsRequired:    "You must accept the terms and conditions.",
		KeyInvalidAttendee:  "Attendee %d: %s",
		KeyInFlight:         "A request is already in progress.",
		KeyUnexpected:       "An unexpected error occurred.",
		KeyOfferNotFound:    "This ticket type is no longer available.",
	},
}

var fieldLabels = map[string]map[string]string{
	Spanish: {
		"full_name":   "el nombre completo es obligatorio",
		"email":       "el email no es válido",
		"phone":       "el teléfono es obligatorio",
		"gender":      "el género es obligatorio",
		"role":        "el rol es obligatorio",
		"id_document": "el documento de identidad es obligatorio",
		"country":     "el país es obligatorio",
		"city":        "la ciudad es obligatoria",
	},
	English: {
		"full_name":   "full name is required",
		"email":       "a valid email is required",
		"phone":       "phone is required",
		"gender":      "gender is required",
		"role":        "role is required",
		"id_document": "identity document is required",
		"country":     "country is required",
		"city":        "city is required",
	},
}

// Catalog renders strings for one locale.
type Catalog struct {
	lang string
}

// supported is in preference order; the first entry is the default.
var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

// New returns the catalog for a BCP 47 tag such as "en-GB" or "es_AR". Region
// subtags are ignored and unknown languages fall back to Spanish.
func New(lang string) *Catalog {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		return &Catalog{lang: Spanish}
	}
	base, conf := tag.Base()
	if _, ok := messages[base.String()]; !ok || conf != language.Exact {
		return &Catalog{lang: Spanish}
	}
	return &Catalog{lang: base.String()}
}

// FromAcceptLanguage picks the supported language the header weights highest.
// Languages refused with q=0 are never chosen. Headers naming no supported
// language get fallback.
func FromAcceptLanguage(header, fallback string) *Catalog {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return New(fallback)
	}
	_, index, conf := matcher.Match(tags...)
	if conf == language.No {
		return New(fallback)
	}
	return &Catalog{lang: supported[index].String()}
}

func (c *Catalog) Lang() string { return c.lang }

func (c *Catalog) Free() string {
	return c.Message(KeyFree)
}

func (c *Catalog) Message(key string, args ...interface{}) string {
	tmpl, ok := messages[c.lang][key]
	if !ok {
		tmpl = messages[Spanish][key]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// FieldMessage is the localized text for a missing or invalid attendee field.
func (c *Catalog) FieldMessage(field string) string {
	if msg, ok := fieldLabels[c.lang][field]; ok {
		return msg
	}
	return field
}

// FormatPrice renders an EUR amount the way each locale writes it.
func (c *Catalog) FormatPrice(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	if c.lang == English {
		return "€" + fixed
	}
	return strings.Replace(fixed, ".", ",", 1) + " €"
}
