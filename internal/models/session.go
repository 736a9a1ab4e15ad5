package models

// Session identifies the caller of a gateway request. BrowserKey is the
// anonymous cookie key and is set even when nobody is logged in.
type Session struct {
	UserID     string
	Token      string
	BrowserKey string
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}
