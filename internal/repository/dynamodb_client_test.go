package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"contact-vault/internal/domain"
)

type fakeDynamo struct {
	getIn    *dynamodb.GetItemInput
	getOut   *dynamodb.GetItemOutput
	getErr   error
	putIn    *dynamodb.PutItemInput
	putErr   error
	queryIn  *dynamodb.QueryInput
	queryOut *dynamodb.QueryOutput
	queryErr error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getIn = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putIn = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryIn = in
	return f.queryOut, f.queryErr
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "table")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, "  ")
	require.Error(t, err)
}

func TestGetLatestContacts_ReturnsNewestSnapshot(t *testing.T) {
	api := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{
			"contacts": str(`[{"name":"Ada Byron","phoneNumbers":[{"number":"555-1234"}]}]`),
		}},
	}}
	store, err := New(api, "vault")
	require.NoError(t, err)

	contacts, err := store.GetLatestContacts(context.Background(), "123456")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "Ada Byron", contacts[0].Name)
	require.Equal(t, "555-1234", contacts[0].FirstNumber())

	require.Equal(t, "vault", *api.queryIn.TableName)
	require.False(t, *api.queryIn.ScanIndexForward)
	require.Equal(t, int32(1), *api.queryIn.Limit)
	pk := api.queryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS)
	require.Equal(t, "SNAPSHOT#123456", pk.Value)
}

func TestGetLatestContacts_NoSnapshot(t *testing.T) {
	store, err := New(&fakeDynamo{queryOut: &dynamodb.QueryOutput{}}, "vault")
	require.NoError(t, err)

	_, err = store.GetLatestContacts(context.Background(), "123456")
	require.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestGetLatestContacts_QueryError(t *testing.T) {
	store, err := New(&fakeDynamo{queryErr: errors.New("throttled")}, "vault")
	require.NoError(t, err)

	_, err = store.GetLatestContacts(context.Background(), "123456")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestGetLatestContacts_MalformedContacts(t *testing.T) {
	api := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"contacts": str("not-json")}},
	}}
	store, err := New(api, "vault")
	require.NoError(t, err)

	_, err = store.GetLatestContacts(context.Background(), "123456")
	require.Error(t, err)
}

func TestSaveSnapshot_WritesItem(t *testing.T) {
	api := &fakeDynamo{}
	store, err := New(api, "vault")
	require.NoError(t, err)

	err = store.SaveSnapshot(context.Background(), "123456", []domain.Contact{{Name: "Ada Byron"}})
	require.NoError(t, err)

	item := api.putIn.Item
	require.Equal(t, "SNAPSHOT#123456", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Contains(t, item["SK"].(*types.AttributeValueMemberS).Value, skPrefixSnapshot)
	require.Contains(t, item["contacts"].(*types.AttributeValueMemberS).Value, "Ada Byron")
	require.Equal(t, "1", item["count"].(*types.AttributeValueMemberN).Value)
}

func TestSaveSnapshot_NilContactsStoredAsEmptyList(t *testing.T) {
	api := &fakeDynamo{}
	store, err := New(api, "vault")
	require.NoError(t, err)

	require.NoError(t, store.SaveSnapshot(context.Background(), "123456", nil))
	require.Equal(t, "[]", api.putIn.Item["contacts"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "0", api.putIn.Item["count"].(*types.AttributeValueMemberN).Value)
}

func TestSaveVoicemail_WritesConditionalItem(t *testing.T) {
	api := &fakeDynamo{}
	store, err := New(api, "vault")
	require.NoError(t, err)

	err = store.SaveVoicemail(context.Background(), "123456", domain.Voicemail{
		ID:           "vm-1",
		Caller:       "+15550001",
		Callee:       "+15550002",
		RecordingURL: "https://carrier.example/rec/abc",
		Duration:     "42",
	})
	require.NoError(t, err)

	item := api.putIn.Item
	require.Equal(t, "VOICEMAIL#123456", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "VM#vm-1", item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "+15550001", item["caller"].(*types.AttributeValueMemberS).Value)
	require.NotNil(t, api.putIn.ConditionExpression)
}

func TestSaveVoicemail_RequiresID(t *testing.T) {
	store, err := New(&fakeDynamo{}, "vault")
	require.NoError(t, err)
	require.Error(t, store.SaveVoicemail(context.Background(), "123456", domain.Voicemail{}))
}

func TestGetVoicemail_Found(t *testing.T) {
	api := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"voicemailId":  str("vm-1"),
		"caller":       str("+15550001"),
		"recordingUrl": str("https://carrier.example/rec/abc"),
		"storagePath":  str("recordings/vm-1.mp3"),
	}}}
	store, err := New(api, "vault")
	require.NoError(t, err)

	vm, err := store.GetVoicemail(context.Background(), "123456", "vm-1")
	require.NoError(t, err)
	require.Equal(t, "vm-1", vm.ID)
	require.Equal(t, "recordings/vm-1.mp3", vm.StoragePath)

	key := api.getIn.Key
	require.Equal(t, "VOICEMAIL#123456", key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "VM#vm-1", key["SK"].(*types.AttributeValueMemberS).Value)
}

func TestGetVoicemail_NotFound(t *testing.T) {
	store, err := New(&fakeDynamo{getOut: &dynamodb.GetItemOutput{}}, "vault")
	require.NoError(t, err)

	_, err = store.GetVoicemail(context.Background(), "123456", "vm-404")
	require.ErrorIs(t, err, domain.ErrVoicemailNotFound)
}
