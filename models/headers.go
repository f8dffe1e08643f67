package models

const (
	// HeaderClientID is the HTTP header a client uses to identify itself.
	HeaderClientID = "X-Client-ID"
)
