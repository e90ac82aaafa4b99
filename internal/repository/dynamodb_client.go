package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"contact-vault/internal/domain"
)

const (
	skPrefixSnapshot  = "TS#"
	skPrefixVoicemail = "VM#"
	ttlDuration       = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store wraps a DynamoDB table holding contact snapshots and voicemail
// metadata, both keyed by the vault secret.
type Store struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Store.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName}, nil
}

// snapshotPK returns the partition key for a secret's contact snapshots.
func snapshotPK(secret string) string {
	return "SNAPSHOT#" + secret
}

// voicemailPK returns the partition key for a secret's voicemails.
func voicemailPK(secret string) string {
	return "VOICEMAIL#" + secret
}

// snapshotSK returns the sort key for a snapshot using its creation time.
func snapshotSK(ts time.Time) string {
	return skPrefixSnapshot + ts.UTC().Format(time.RFC3339Nano)
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// GetLatestContacts returns the contacts of the most recently stored
// snapshot for the secret (latest wins, no merge). Returns
// domain.ErrNoSnapshot when no snapshot has ever been stored.
func (s *Store) GetLatestContacts(ctx context.Context, secret string) ([]domain.Contact, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: snapshotPK(secret)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixSnapshot},
		},
		// Newest first, one row: the latest snapshot.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetLatestContacts query: %w", err)
	}
	if out == nil || len(out.Items) == 0 {
		return nil, fmt.Errorf("repository: GetLatestContacts: %w", domain.ErrNoSnapshot)
	}

	raw, err := strAttr(out.Items[0], "contacts")
	if err != nil {
		return nil, fmt.Errorf("repository: GetLatestContacts: %w", err)
	}
	var contacts []domain.Contact
	if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
		return nil, fmt.Errorf("repository: GetLatestContacts decode contacts: %w", err)
	}
	return contacts, nil
}

// SaveSnapshot stores a new contact snapshot for the secret. Earlier
// snapshots are kept until their TTL expires; reads always take the newest.
func (s *Store) SaveSnapshot(ctx context.Context, secret string, contacts []domain.Contact) error {
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	raw, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("repository: SaveSnapshot encode contacts: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":       &types.AttributeValueMemberS{Value: snapshotPK(secret)},
			"SK":       &types.AttributeValueMemberS{Value: snapshotSK(time.Now())},
			"contacts": &types.AttributeValueMemberS{Value: string(raw)},
			"count":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", len(contacts))},
			"ttl":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveSnapshot: %w", err)
	}
	return nil
}

// SaveVoicemail persists recording metadata delivered by the carrier.
func (s *Store) SaveVoicemail(ctx context.Context, secret string, vm domain.Voicemail) error {
	if vm.ID == "" {
		return errors.New("repository: SaveVoicemail: voicemail ID is required")
	}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                voicemailItem(secret, vm),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveVoicemail: %w", err)
	}
	return nil
}

// GetVoicemail looks up one voicemail by (secret, id). A miss wraps
// ErrVoicemailNotFound.
func (s *Store) GetVoicemail(ctx context.Context, secret, id string) (domain.Voicemail, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: voicemailPK(secret)},
			"SK": &types.AttributeValueMemberS{Value: skPrefixVoicemail + id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Voicemail{}, fmt.Errorf("repository: GetVoicemail: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Voicemail{}, fmt.Errorf("repository: GetVoicemail %q: %w", id, domain.ErrVoicemailNotFound)
	}
	return itemToVoicemail(out.Item)
}

func voicemailItem(secret string, vm domain.Voicemail) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: voicemailPK(secret)},
		"SK":           &types.AttributeValueMemberS{Value: skPrefixVoicemail + vm.ID},
		"voicemailId":  &types.AttributeValueMemberS{Value: vm.ID},
		"caller":       &types.AttributeValueMemberS{Value: vm.Caller},
		"callee":       &types.AttributeValueMemberS{Value: vm.Callee},
		"recordingUrl": &types.AttributeValueMemberS{Value: vm.RecordingURL},
		"storagePath":  &types.AttributeValueMemberS{Value: vm.StoragePath},
		"duration":     &types.AttributeValueMemberS{Value: vm.Duration},
		"ttl":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
	}
}

func itemToVoicemail(item map[string]types.AttributeValue) (domain.Voicemail, error) {
	id, err := strAttr(item, "voicemailId")
	if err != nil {
		return domain.Voicemail{}, fmt.Errorf("repository: GetVoicemail decode: %w", err)
	}
	caller, _ := strAttr(item, "caller")             // allow empty
	callee, _ := strAttr(item, "callee")             // allow empty
	recordingURL, _ := strAttr(item, "recordingUrl") // allow empty
	storagePath, _ := strAttr(item, "storagePath")   // allow empty
	duration, _ := strAttr(item, "duration")         // allow empty

	return domain.Voicemail{
		ID:           id,
		Caller:       caller,
		Callee:       callee,
		RecordingURL: recordingURL,
		StoragePath:  storagePath,
		Duration:     duration,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}
