package domain

import "errors"

// ErrNoSnapshot reports that no contact snapshot has ever been stored for a
// secret. The voice engine treats this as an empty directory; the JSON API
// surfaces it as not found.
var ErrNoSnapshot = errors.New("no contact snapshot")

// PhoneNumber is a single stored number for a contact.
type PhoneNumber struct {
	Number string `json:"number"`
}

// Contact is one entry of a backed-up contact snapshot.
type Contact struct {
	Name         string        `json:"name"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers"`
}

// FirstNumber returns the first non-empty stored number, or "".
func (c Contact) FirstNumber() string {
	for _, p := range c.PhoneNumbers {
		if p.Number != "" {
			return p.Number
		}
	}
	return ""
}
