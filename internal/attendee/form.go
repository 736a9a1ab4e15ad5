package attendee

import "ms-reservation/internal/models"

// Resize grows records with blank entries or truncates it so it holds exactly
// quantity attendees. Existing entries keep their values.
func Resize(records []models.AttendeeRecord, quantity int) []models.AttendeeRecord {
	if quantity < 0 {
		quantity = 0
	}
	out := make([]models.AttendeeRecord, quantity)
	copy(out, records)
	return out
}

// ClampQuantity keeps a stepper value inside [1, stock]. A nil stock is
// unlimited; a stock of zero or less clamps to 0.
func ClampQuantity(q int, stock *int) int {
	if stock != nil && *stock <= 0 {
		return 0
	}
	if q < 1 {
		q = 1
	}
	if stock != nil && q > *stock {
		q = *stock
	}
	return q
}
