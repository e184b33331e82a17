package harvester

import "regexp"

// emailPattern matches a printable local part, an @, and a dotted domain
// whose top-level label is at least two letters. Case is preserved.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// ExtractEmails scans text for email addresses and returns the distinct
// matches in the order they first appear. Matching is non-overlapping and
// leftmost-first; no match yields an empty slice.
func ExtractEmails(text string) []string {
	if text == "" {
		return nil
	}

	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var emails []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			emails = append(emails, m)
		}
	}
	return emails
}
