package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrTooManyPages stops a pager that keeps announcing further pages.
var ErrTooManyPages = errors.New("backend kept announcing further pages")

// RejectedError is a non-success response from a backend. FieldErrors holds the
// top level field map; AttendeeErrors is keyed by the 0-based attendee index.
type RejectedError struct {
	Status         int
	Message        string
	FieldErrors    map[string][]string
	AttendeeErrors map[int]map[string][]string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend rejected request (%d)", e.Status)
}

// FirstFieldError returns a deterministic "field: message" pair for display
// when the server sent no top level message.
func (e *RejectedError) FirstFieldError() (string, string, bool) {
	if len(e.FieldErrors) > 0 {
		keys := make([]string, 0, len(e.FieldErrors))
		for k := range e.FieldErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if msgs := e.FieldErrors[k]; len(msgs) > 0 {
				return k, msgs[0], true
			}
		}
	}
	return "", "", false
}

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

var messageKeys = []string{"detail", "message", "error"}

var attendeeKeys = map[string]bool{
	"attendee_data":   true,
	"attendees":       true,
	"attendee_errors": true,
}

// parseRejection reads the error payload shapes the backend produces:
// {"detail": "..."}, {"email": ["..."]}, {"errors": {...}} and attendee error
// lists or index maps under "attendee_data". Unparseable bodies leave only the
// status set.
func parseRejection(status int, body []byte) *RejectedError {
	rej := &RejectedError{Status: status}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") && len(text) < 300 {
			rej.Message = text
		}
		return rej
	}
	fillRejection(rej, payload)
	return rej
}

func fillRejection(rej *RejectedError, payload map[string]json.RawMessage) {
	for _, key := range messageKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" && rej.Message == "" {
			rej.Message = s
		}
	}
	if nested, ok := payload["errors"]; ok {
		var inner map[string]json.RawMessage
		if json.Unmarshal(nested, &inner) == nil {
			fillRejection(rej, inner)
		}
	}
	for key, raw := range payload {
		switch {
		case key == "errors" || isMessageKey(key):
			continue
		case attendeeKeys[key]:
			if errs := parseAttendeeErrors(raw); len(errs) > 0 {
				if rej.AttendeeErrors == nil {
					rej.AttendeeErrors = map[int]map[string][]string{}
				}
				for i, fields := range errs {
					rej.AttendeeErrors[i] = fields
				}
			}
		case key == "non_field_errors":
			if msgs := stringList(raw); len(msgs) > 0 && rej.Message == "" {
				rej.Message = strings.Join(msgs, " ")
			}
		default:
			if msgs := stringList(raw); len(msgs) > 0 {
				if rej.FieldErrors == nil {
					rej.FieldErrors = map[string][]string{}
				}
				rej.FieldErrors[key] = msgs
			}
		}
	}
}

func isMessageKey(key string) bool {
	for _, k := range messageKeys {
		if k == key {
			return true
		}
	}
	return false
}

// stringList accepts a string or a list of strings.
func stringList(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return []string{s}
	}
	return nil
}

func parseFieldMap(raw json.RawMessage) map[string][]string {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	out := map[string][]string{}
	for k, v := range obj {
		if msgs := stringList(v); len(msgs) > 0 {
			out[k] = msgs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseAttendeeErrors handles both [{}, {"email": [...]}] and {"1": {...}}.
func parseAttendeeErrors(raw json.RawMessage) map[int]map[string][]string {
	out := map[int]map[string][]string{}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for i, item := range list {
			if fields := parseFieldMap(item); fields != nil {
				out[i] = fields
			}
		}
		return out
	}
	var byIndex map[string]json.RawMessage
	if json.Unmarshal(raw, &byIndex) == nil {
		for k, item := range byIndex {
			i, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			if fields := parseFieldMap(item); fields != nil {
				out[i] = fields
			}
		}
	}
	return out
}
