package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"contact-vault/internal/domain"
)

const signedURLTTL = 15 * time.Minute

type SnapshotStore interface {
	GetLatestContacts(ctx context.Context, secret string) ([]domain.Contact, error)
	SaveSnapshot(ctx context.Context, secret string, contacts []domain.Contact) error
	GetVoicemail(ctx context.Context, secret, id string) (domain.Voicemail, error)
}

// RecordingSigner exchanges a private storage path for a short-lived URL.
type RecordingSigner interface {
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// RecordingFetcher downloads a carrier-hosted recording server-side.
type RecordingFetcher interface {
	FetchRecording(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// MediaResult is either a redirect to a signed URL or the recording bytes,
// never both.
type MediaResult struct {
	RedirectURL string
	Body        []byte
	ContentType string
}

// VaultService backs the PIN-gated JSON and media API: snapshot sync,
// latest-snapshot reads and voicemail recording retrieval.
type VaultService struct {
	store   SnapshotStore
	signer  RecordingSigner  // optional
	carrier RecordingFetcher // optional
	pin     *pinSource
}

func NewVaultService(params ParamGetter, store SnapshotStore, signer RecordingSigner, carrier RecordingFetcher, paramPrefix string) (*VaultService, error) {
	if params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: snapshot store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	return &VaultService{
		store:   store,
		signer:  signer,
		carrier: carrier,
		pin:     newPinSource(params, paramPrefix+"/vault_pin"),
	}, nil
}

// authorize validates the supplied PIN and returns the vault secret that
// keys all stored data.
func (s *VaultService) authorize(ctx context.Context, pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", newError(ErrorInvalidPIN, "missing_pin", nil)
	}
	secret, err := s.pin.get(ctx)
	if err != nil {
		return "", newError(ErrorInternal, "ssm_load_error", err)
	}
	if pin != secret {
		return "", newError(ErrorInvalidPIN, "pin_mismatch", nil)
	}
	return secret, nil
}

// Sync stores a new contact snapshot and returns the contact count.
func (s *VaultService) Sync(ctx context.Context, pin string, contacts []domain.Contact) (int, error) {
	secret, err := s.authorize(ctx, pin)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveSnapshot(ctx, secret, contacts); err != nil {
		return 0, newError(ErrorStorage, "snapshot_write_error", err)
	}
	return len(contacts), nil
}

// Latest returns the most recent snapshot, post block-list filter.
func (s *VaultService) Latest(ctx context.Context, pin string) ([]domain.Contact, error) {
	secret, err := s.authorize(ctx, pin)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.GetLatestContacts(ctx, secret)
	if errors.Is(err, domain.ErrNoSnapshot) {
		return nil, newError(ErrorNotFound, "no_contacts", err)
	}
	if err != nil {
		return nil, newError(ErrorStorage, "snapshot_read_error", err)
	}
	return filterContacts(contacts), nil
}

// RecordingMedia resolves a voicemail to playable audio: a signed URL for a
// privately stored copy when available, otherwise a server-side fetch of
// the carrier-hosted recording using carrier credentials.
func (s *VaultService) RecordingMedia(ctx context.Context, pin, voicemailID string) (MediaResult, error) {
	secret, err := s.authorize(ctx, pin)
	if err != nil {
		return MediaResult{}, err
	}
	if strings.TrimSpace(voicemailID) == "" {
		return MediaResult{}, newError(ErrorInvalidInput, "missing_voicemail_id", nil)
	}

	vm, err := s.store.GetVoicemail(ctx, secret, voicemailID)
	if errors.Is(err, domain.ErrVoicemailNotFound) {
		return MediaResult{}, newError(ErrorNotFound, "voicemail_not_found", err)
	}
	if err != nil {
		return MediaResult{}, newError(ErrorStorage, "voicemail_read_error", err)
	}

	if vm.StoragePath != "" && s.signer != nil {
		url, err := s.signer.SignedURL(ctx, vm.StoragePath, signedURLTTL)
		if err != nil {
			return MediaResult{}, newError(ErrorStorage, "sign_url_error", err)
		}
		return MediaResult{RedirectURL: url}, nil
	}

	if vm.RecordingURL != "" && s.carrier != nil {
		body, contentType, err := s.carrier.FetchRecording(ctx, vm.RecordingURL)
		if err != nil {
			return MediaResult{}, newError(ErrorUpstream, "carrier_fetch_error", err)
		}
		return MediaResult{Body: body, ContentType: contentType}, nil
	}

	return MediaResult{}, newError(ErrorNotFound, "no_recording_reference", nil)
}
