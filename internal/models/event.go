package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Organizer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// UnmarshalJSON resolves the logo from whichever of the historical field names
// the backend populated, so nothing downstream has to probe the raw payload.
func (o *Organizer) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Name      string          `json:"name"`
		LogoURL   string          `json:"logo_url"`
		ImageURL  string          `json:"image_url"`
		AvatarURL string          `json:"avatar_url"`
		Logo      string          `json:"logo"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.ID = rawID(raw.ID)
	o.Name = raw.Name
	o.LogoURL = firstNonEmpty(raw.LogoURL, raw.ImageURL, raw.AvatarURL, raw.Logo)
	return nil
}

type Event struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       Localized  `json:"title"`
	Description Localized  `json:"description,omitempty"`
	StartsAt    *time.Time `json:"start_date,omitempty"`
	EndsAt      *time.Time `json:"end_date,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	City        string     `json:"city,omitempty"`
	Organizer   *Organizer `json:"organizer,omitempty"`
}

func (e *Event) UnmarshalJSON(b []byte) error {
	type alias Event
	aux := struct {
		*alias
		ID json.RawMessage `json:"id"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.ID = rawID(aux.ID)
	return nil
}

// rawID accepts numeric and string identifiers.
func rawID(b json.RawMessage) string {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		return str
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
