package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"contact-vault/internal/domain"
	"contact-vault/internal/twiml"
)

// Webhook paths the carrier is pointed at. The composed markup redirects
// and gathers against these, so the handler routes on the same constants.
const (
	PathAnswer        = "/voice/answer"
	PathMenu          = "/voice/menu"
	PathPhone         = "/voice/phone"
	PathPin           = "/voice/pin"
	PathSearch        = "/voice/search"
	PathSelect        = "/voice/select"
	PathVoicemailDone = "/voice/voicemail-done"
)

const (
	defaultMaxPinAttempts = 5
	maxSearchResults      = 3
	maxSpeechHints        = 50
	pinLength             = 6
)

// EventKind identifies which webhook the carrier delivered.
type EventKind int

const (
	EventAnswer EventKind = iota
	EventMenu
	EventPhone
	EventPin
	EventSearch
	EventSelect
	EventVoicemailDone
)

// Event is one webhook turn, already decoded from the carrier's form body.
type Event struct {
	Kind              EventKind
	CallID            string
	Digits            string
	Speech            string
	From              string
	To                string
	RecordingURL      string
	RecordingDuration string
}

type DirectoryReader interface {
	GetLatestContacts(ctx context.Context, secret string) ([]domain.Contact, error)
}

type VoicemailWriter interface {
	SaveVoicemail(ctx context.Context, secret string, vm domain.Voicemail) error
}

// CallService drives a caller through the voice flow. Each webhook turn is
// independent; continuity comes from the session and attempt stores keyed
// by the carrier's call identifier.
type CallService struct {
	directory   DirectoryReader
	voicemails  VoicemailWriter
	pin         *pinSource
	maxAttempts int

	sessions *sessionStore
	attempts *attemptStore

	newVoicemailID func() string
}

func NewCallService(params ParamGetter, directory DirectoryReader, voicemails VoicemailWriter, paramPrefix string, maxAttempts int, idleTTL time.Duration) (*CallService, error) {
	if params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if directory == nil {
		return nil, errors.New("usecase: directory reader must not be nil")
	}
	if voicemails == nil {
		return nil, errors.New("usecase: voicemail writer must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxPinAttempts
	}
	return &CallService{
		directory:      directory,
		voicemails:     voicemails,
		pin:            newPinSource(params, paramPrefix+"/vault_pin"),
		maxAttempts:    maxAttempts,
		sessions:       newSessionStore(idleTTL),
		attempts:       newAttemptStore(idleTTL),
		newVoicemailID: uuid.NewString,
	}, nil
}

// Handle runs one transition of the call state machine and composes the
// markup for the next turn. Failures are always voice-announced; the call
// is never left without a response document.
func (s *CallService) Handle(ctx context.Context, ev Event) []twiml.Verb {
	if ev.CallID == "" {
		return redirectToStart()
	}
	switch ev.Kind {
	case EventAnswer:
		return s.answer(ev)
	case EventMenu:
		return s.menu(ev)
	case EventPhone:
		return s.phone(ev)
	case EventPin:
		return s.verifyPin(ctx, ev)
	case EventSearch:
		return s.search(ev)
	case EventSelect:
		return s.selectContact(ev)
	case EventVoicemailDone:
		return s.voicemailDone(ctx, ev)
	}
	return redirectToStart()
}

// answer starts (or restarts) a call: the session is replaced with a fresh
// one. The attempt counter is deliberately left alone — failed PIN turns
// redirect here, and a genuinely new call has a new call identifier anyway;
// stale counters fall to the idle sweep.
func (s *CallService) answer(ev Event) []twiml.Verb {
	s.sessions.Put(domain.CallSession{CallID: ev.CallID, State: domain.StateMenu})
	return append([]twiml.Verb{
		twiml.Say{Text: "Welcome to your contact vault."},
	}, menuPrompt()...)
}

func (s *CallService) menu(ev Event) []twiml.Verb {
	sess, ok := s.sessions.Get(ev.CallID)
	if !ok || sess.State != domain.StateMenu {
		return redirectToStart()
	}
	switch strings.TrimSpace(ev.Digits) {
	case "1":
		// Terminal branch: recording metadata arrives on voicemail-done.
		s.sessions.Delete(ev.CallID)
		return []twiml.Verb{
			twiml.Say{Text: "Leave your message after the tone. Press pound when you are finished."},
			twiml.Record{Action: PathVoicemailDone, Method: "POST", MaxLength: 120, Timeout: 5, FinishOnKey: "#"},
			twiml.Hangup{},
		}
	case "2":
		sess.State = domain.StateAwaitingPhone
		s.sessions.Put(sess)
		return []twiml.Verb{
			twiml.Gather{
				Input: "dtmf speech", Action: PathPhone, Method: "POST",
				Timeout: 6, FinishOnKey: "#",
				Say: []twiml.Say{{Text: "Please enter or say your phone number, then press pound."}},
			},
			twiml.Redirect{Method: "POST", URL: PathAnswer},
		}
	}
	return redirectToStart()
}

func (s *CallService) phone(ev Event) []twiml.Verb {
	sess, ok := s.sessions.Get(ev.CallID)
	if !ok || sess.State != domain.StateAwaitingPhone {
		return redirectToStart()
	}
	captured := ev.Digits
	if strings.TrimSpace(captured) == "" {
		captured = ev.Speech
	}
	phone := normalizePhone(captured)
	if phone == "" {
		return redirectToStart()
	}
	// Full replacement: authentication always restarts from here.
	s.sessions.Put(domain.CallSession{
		CallID:      ev.CallID,
		CallerPhone: phone,
		State:       domain.StateAwaitingPin,
	})
	return pinPrompt()
}

func (s *CallService) verifyPin(ctx context.Context, ev Event) []twiml.Verb {
	sess, ok := s.sessions.Get(ev.CallID)
	if !ok || sess.State != domain.StateAwaitingPin {
		return expiredThenStart()
	}
	input := digitsOf(ev.Digits)
	if input == "" {
		input = digitsOf(ev.Speech)
	}
	if input == "" {
		// No capture at all is not a failed attempt.
		return redirectToStart()
	}

	secret, err := s.pin.get(ctx)
	if err != nil {
		slog.Error("load vault pin", "callId", ev.CallID, "err", err)
		return systemErrorHangup()
	}

	if input != secret {
		count := s.attempts.Increment(ev.CallID)
		if count >= s.maxAttempts {
			s.attempts.Clear(ev.CallID)
			s.sessions.Delete(ev.CallID)
			slog.Warn("pin lockout", "callId", ev.CallID, "attempts", count)
			return []twiml.Verb{
				twiml.Say{Text: "Too many failed attempts. Goodbye."},
				twiml.Hangup{},
			}
		}
		return append([]twiml.Verb{
			twiml.Say{Text: "That PIN is not correct."},
		}, redirectToStart()...)
	}

	s.attempts.Clear(ev.CallID)

	contacts, err := s.directory.GetLatestContacts(ctx, secret)
	if err != nil && !errors.Is(err, domain.ErrNoSnapshot) {
		slog.Error("directory fetch", "callId", ev.CallID, "err", err)
		return systemErrorHangup()
	}
	contacts = filterContacts(contacts)
	if len(contacts) == 0 {
		s.sessions.Delete(ev.CallID)
		return []twiml.Verb{
			twiml.Say{Text: "You have no contacts backed up. Goodbye."},
			twiml.Hangup{},
		}
	}

	sess.Authenticated = true
	sess.Contacts = contacts
	sess.LastSearch = nil
	sess.State = domain.StateSearch
	s.sessions.Put(sess)
	return searchPrompt(contacts)
}

func (s *CallService) search(ev Event) []twiml.Verb {
	sess, ok := s.sessions.Get(ev.CallID)
	if !ok || !sess.Authenticated {
		return expiredThenStart()
	}
	results := searchContacts(sess.Contacts, ev.Speech)
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	if len(results) == 0 {
		sess.LastSearch = nil
		sess.State = domain.StateMenu
		s.sessions.Put(sess)
		return append([]twiml.Verb{
			twiml.Say{Text: "No matching contacts were found."},
		}, menuPrompt()...)
	}
	sess.LastSearch = &domain.SearchResult{
		Query:   strings.ToLower(strings.TrimSpace(ev.Speech)),
		Results: results,
	}
	sess.State = domain.StateSelect
	s.sessions.Put(sess)
	return selectPrompt(results)
}

func (s *CallService) selectContact(ev Event) []twiml.Verb {
	sess, ok := s.sessions.Get(ev.CallID)
	if !ok || !sess.Authenticated || sess.LastSearch == nil {
		return expiredThenStart()
	}
	input := ev.Digits
	if strings.TrimSpace(input) == "" {
		input = ev.Speech
	}
	idx, repeat, recognized := resolveSelection(input)
	if repeat {
		// Re-present the stored results; the search is not re-run.
		return selectPrompt(sess.LastSearch.Results)
	}
	if !recognized || idx >= len(sess.LastSearch.Results) {
		sess.State = domain.StateSearch
		s.sessions.Put(sess)
		return append([]twiml.Verb{
			twiml.Say{Text: "Sorry, I did not catch that."},
		}, searchPrompt(sess.Contacts)...)
	}

	contact := sess.LastSearch.Results[idx]
	number := contact.FirstNumber()
	if number == "" {
		sess.Authenticated = false
		sess.Contacts = nil
		sess.LastSearch = nil
		sess.State = domain.StateAwaitingPin
		s.sessions.Put(sess)
		return append([]twiml.Verb{
			twiml.Say{Text: fmt.Sprintf("No number is stored for %s.", contact.Name)},
		}, pinPrompt()...)
	}

	sess.LastSearch = nil
	sess.State = domain.StateMenu
	s.sessions.Put(sess)
	return append([]twiml.Verb{
		twiml.Say{Text: fmt.Sprintf("The number for %s is %s.", contact.Name, speakDigits(number))},
		twiml.Pause{Length: 1},
		twiml.Say{Text: "Would you like another contact?"},
	}, menuPrompt()...)
}

func (s *CallService) voicemailDone(ctx context.Context, ev Event) []twiml.Verb {
	id := s.newVoicemailID()
	slog.Info("voicemail recorded",
		"callId", ev.CallID,
		"voicemailId", id,
		"from", ev.From,
		"to", ev.To,
		"recordingUrl", ev.RecordingURL,
		"duration", ev.RecordingDuration,
	)
	if secret, err := s.pin.get(ctx); err != nil {
		slog.Error("load vault pin", "callId", ev.CallID, "err", err)
	} else if err := s.voicemails.SaveVoicemail(ctx, secret, domain.Voicemail{
		ID:           id,
		Caller:       ev.From,
		Callee:       ev.To,
		RecordingURL: ev.RecordingURL,
		Duration:     ev.RecordingDuration,
	}); err != nil {
		// Metadata is observability only; the caller is still thanked.
		slog.Error("save voicemail metadata", "callId", ev.CallID, "voicemailId", id, "err", err)
	}
	s.sessions.Delete(ev.CallID)
	s.attempts.Clear(ev.CallID)
	return []twiml.Verb{
		twiml.Say{Text: "Thank you. Your message has been recorded. Goodbye."},
		twiml.Hangup{},
	}
}

func redirectToStart() []twiml.Verb {
	return []twiml.Verb{twiml.Redirect{Method: "POST", URL: PathAnswer}}
}

func expiredThenStart() []twiml.Verb {
	return append([]twiml.Verb{
		twiml.Say{Text: "Your session has expired."},
	}, redirectToStart()...)
}

func systemErrorHangup() []twiml.Verb {
	return []twiml.Verb{
		twiml.Say{Text: "A system error occurred. Please try again later. Goodbye."},
		twiml.Hangup{},
	}
}

func menuPrompt() []twiml.Verb {
	return []twiml.Verb{
		twiml.Gather{
			Input: "dtmf", Action: PathMenu, Method: "POST",
			NumDigits: 1, Timeout: 5,
			Say: []twiml.Say{{Text: "Press 1 to leave a voicemail. Press 2 for secure contact access."}},
		},
		twiml.Redirect{Method: "POST", URL: PathAnswer},
	}
}

func pinPrompt() []twiml.Verb {
	return []twiml.Verb{
		twiml.Gather{
			Input: "dtmf speech", Action: PathPin, Method: "POST",
			NumDigits: pinLength, Timeout: 6,
			Say: []twiml.Say{{Text: "Please enter your six digit PIN."}},
		},
		twiml.Redirect{Method: "POST", URL: PathAnswer},
	}
}

func searchPrompt(contacts []domain.Contact) []twiml.Verb {
	return []twiml.Verb{
		twiml.Gather{
			Input: "speech", Action: PathSearch, Method: "POST",
			Timeout: 6, SpeechTimeout: "auto",
			Hints: speechHints(contacts),
			Say:   []twiml.Say{{Text: "Say the name of the contact you need."}},
		},
		twiml.Redirect{Method: "POST", URL: PathAnswer},
	}
}

func selectPrompt(results []domain.Contact) []twiml.Verb {
	return []twiml.Verb{
		twiml.Gather{
			Input: "dtmf speech", Action: PathSelect, Method: "POST",
			NumDigits: 1, Timeout: 6,
			Hints: "one, two, three, repeat",
			Say:   []twiml.Say{{Text: announceResults(results)}},
		},
		twiml.Redirect{Method: "POST", URL: PathAnswer},
	}
}

var numberWords = [maxSearchResults]string{"One", "Two", "Three"}

func announceResults(results []domain.Contact) string {
	var b strings.Builder
	if len(results) == 1 {
		b.WriteString("I found 1 contact. ")
	} else {
		fmt.Fprintf(&b, "I found %d contacts. ", len(results))
	}
	for i, c := range results {
		fmt.Fprintf(&b, "%s: %s. ", numberWords[i], c.Name)
	}
	b.WriteString("Say one, two or three to choose, or say repeat to hear them again.")
	return b.String()
}

// speechHints lists contact names for the carrier's speech recognizer,
// capped at 50 entries.
func speechHints(contacts []domain.Contact) string {
	names := make([]string, 0, maxSpeechHints)
	for _, c := range contacts {
		if len(names) == maxSpeechHints {
			break
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
