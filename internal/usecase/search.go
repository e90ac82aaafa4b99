package usecase

import (
	"sort"
	"strings"

	"contact-vault/internal/domain"
)

const (
	nameMatchScore   = 3
	numberMatchScore = 1
)

// searchContacts ranks contacts against a trimmed, lower-cased query.
// A name substring match scores 3, a match in any stored number scores 1;
// the scores add. Zero-score contacts are dropped and the rest are sorted
// by descending score, ties keeping their snapshot order. The full ranked
// set is returned; presentation truncation is the caller's concern.
// An empty query matches nothing.
func searchContacts(contacts []domain.Contact, query string) []domain.Contact {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type rankedContact struct {
		contact domain.Contact
		score   int
	}
	ranked := make([]rankedContact, 0, len(contacts))
	for _, c := range contacts {
		score := 0
		if strings.Contains(strings.ToLower(c.Name), q) {
			score += nameMatchScore
		}
		for _, p := range c.PhoneNumbers {
			if strings.Contains(strings.ToLower(p.Number), q) {
				score += numberMatchScore
				break
			}
		}
		if score > 0 {
			ranked = append(ranked, rankedContact{contact: c, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]domain.Contact, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.contact)
	}
	return out
}
