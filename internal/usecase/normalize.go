package usecase

import "strings"

// digitWords maps spoken digit transcripts to their numeric form.
var digitWords = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "two": "2", "three": "3",
	"four": "4", "five": "5", "six": "6",
	"seven": "7", "eight": "8", "nine": "9",
}

// normalizePhone strips everything but digits from a captured phone number,
// preserving a single leading plus sign.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// digitsOf reduces touch-tone or spoken input to a digit string. Speech
// transcripts like "one two three" and punctuated forms like "1 2 3." both
// normalize the same way.
func digitsOf(s string) string {
	var b strings.Builder
	for _, field := range strings.Fields(strings.ToLower(s)) {
		field = strings.Trim(field, ".,!?")
		if d, ok := digitWords[field]; ok {
			b.WriteString(d)
			continue
		}
		for _, r := range field {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// speakDigits renders a stored number digit by digit with pause separators,
// so text-to-speech never reads it as one large number.
func speakDigits(number string) string {
	digits := make([]string, 0, len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits = append(digits, string(r))
		}
	}
	return strings.Join(digits, ", ")
}

// resolveSelection maps selection input to a zero-based result index or the
// repeat command. The third return is false when the input is unrecognized.
func resolveSelection(input string) (index int, repeat bool, ok bool) {
	in := strings.Trim(strings.ToLower(strings.TrimSpace(input)), ".,!?")
	switch in {
	case "1", "one":
		return 0, false, true
	case "2", "two":
		return 1, false, true
	case "3", "three":
		return 2, false, true
	case "repeat", "again":
		return 0, true, true
	}
	return 0, false, false
}
