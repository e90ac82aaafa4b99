package usecase

import (
	"strings"

	"contact-vault/internal/domain"
)

// blockedNames are never shown to a caller, regardless of how the snapshot
// was synced. Matching is on the normalized (lower-cased, trimmed) name.
var blockedNames = map[string]struct{}{
	"spam":          {},
	"scam likely":   {},
	"blocked":       {},
	"do not answer": {},
	"unknown":       {},
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// filterContacts removes block-listed contacts, preserving the order of the
// rest. It is applied at every read boundary, so it must be idempotent.
func filterContacts(contacts []domain.Contact) []domain.Contact {
	out := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if _, blocked := blockedNames[normalizeName(c.Name)]; blocked {
			continue
		}
		out = append(out, c)
	}
	return out
}
