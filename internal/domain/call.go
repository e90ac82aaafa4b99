package domain

// CallState is the explicit position of a call inside the voice flow.
// Transitions are driven exclusively by carrier webhooks.
type CallState int

const (
	// StateMenu: the main menu prompt has been played and a digit is expected.
	StateMenu CallState = iota
	// StateAwaitingPhone: the caller chose secure access and must supply a
	// phone number.
	StateAwaitingPhone
	// StateAwaitingPin: a phone number is on file and the six digit PIN is
	// expected next.
	StateAwaitingPin
	// StateSearch: the caller is authenticated and a spoken contact name is
	// expected.
	StateSearch
	// StateSelect: search results have been read out and a selection
	// ("one", "two", "three" or "repeat") is expected.
	StateSelect
)

func (s CallState) String() string {
	switch s {
	case StateMenu:
		return "menu"
	case StateAwaitingPhone:
		return "awaiting_phone"
	case StateAwaitingPin:
		return "awaiting_pin"
	case StateSearch:
		return "search"
	case StateSelect:
		return "select"
	}
	return "unknown"
}

// SearchResult is the last executed contact search for a call, retained so
// that "repeat" can re-present the same results without searching again.
type SearchResult struct {
	Query   string
	Results []Contact
}

// CallSession is the server-held state for one active call, keyed by the
// carrier-assigned call identifier. Sessions are value types; every update
// fully replaces the stored session.
type CallSession struct {
	CallID        string
	CallerPhone   string
	Authenticated bool
	State         CallState
	Contacts      []Contact
	LastSearch    *SearchResult
}
