package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"contact-vault/internal/domain"
)

func contact(name string, numbers ...string) domain.Contact {
	c := domain.Contact{Name: name}
	for _, n := range numbers {
		c.PhoneNumbers = append(c.PhoneNumbers, domain.PhoneNumber{Number: n})
	}
	return c
}

func names(contacts []domain.Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Name)
	}
	return out
}

func TestSearchContacts_EmptyQueryMatchesNothing(t *testing.T) {
	contacts := []domain.Contact{contact("Ada Byron", "555-1234")}
	require.Empty(t, searchContacts(contacts, ""))
	require.Empty(t, searchContacts(contacts, "   "))
}

func TestSearchContacts_DropsZeroScores(t *testing.T) {
	contacts := []domain.Contact{
		contact("Ada Byron", "555-1234"),
		contact("Grace Hopper", "555-9999"),
	}
	got := searchContacts(contacts, "ada")
	require.Equal(t, []string{"Ada Byron"}, names(got))
}

func TestSearchContacts_NameOutranksNumber(t *testing.T) {
	contacts := []domain.Contact{
		contact("Helpdesk", "555-0042"), // number contains "42": score 1
		contact("Agent 42", "555-1111"), // name contains "42": score 3
	}
	got := searchContacts(contacts, "42")
	require.Equal(t, []string{"Agent 42", "Helpdesk"}, names(got))
}

func TestSearchContacts_NameAndNumberScoresAdd(t *testing.T) {
	contacts := []domain.Contact{
		contact("555 Pizza", "777-0000"),   // name only: 3
		contact("Pizza 555", "555-555-55"), // name + number: 4
	}
	got := searchContacts(contacts, "555")
	require.Equal(t, []string{"Pizza 555", "555 Pizza"}, names(got))
}

func TestSearchContacts_TiesKeepSnapshotOrder(t *testing.T) {
	contacts := []domain.Contact{
		contact("Anna Lee"),
		contact("Anna Ray"),
		contact("Anna Kim"),
	}
	got := searchContacts(contacts, "anna")
	require.Equal(t, []string{"Anna Lee", "Anna Ray", "Anna Kim"}, names(got))
}

func TestSearchContacts_QueryIsCaseInsensitive(t *testing.T) {
	contacts := []domain.Contact{contact("Ada Byron")}
	require.Len(t, searchContacts(contacts, "  ADA  "), 1)
}

func TestSearchContacts_ReturnsFullRankedSet(t *testing.T) {
	contacts := []domain.Contact{
		contact("Anna One"), contact("Anna Two"), contact("Anna Three"),
		contact("Anna Four"), contact("Anna Five"),
	}
	require.Len(t, searchContacts(contacts, "anna"), 5)
}
