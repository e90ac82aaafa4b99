package domain

import "errors"

// ErrVoicemailNotFound reports a voicemail lookup miss for a (secret, id)
// pair.
var ErrVoicemailNotFound = errors.New("voicemail not found")

// Voicemail is the persisted metadata for one recorded message. Either
// RecordingURL (carrier-hosted) or StoragePath (private object storage) may
// be set; retrieval prefers the private copy.
type Voicemail struct {
	ID           string
	Caller       string
	Callee       string
	RecordingURL string
	StoragePath  string
	Duration     string
}
