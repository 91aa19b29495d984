package inventory

import (
	"context"
	"errors"
	"strings"
)

// MatchFinder looks up the first active medicine whose name or generic name
// contains the text (case-insensitive) and whose batch number is equal.
// It returns nil without error when nothing matches.
type MatchFinder interface {
	FindMatch(ctx context.Context, text, batch string) (*Medicine, error)
}

// Matcher resolves a bill line to a stock record.
type Matcher struct {
	Finder MatchFinder
}

// Match returns the matched medicine or nil. No match is not an error: bill
// lines may describe untracked stock.
func (m Matcher) Match(ctx context.Context, name, batch string) (*Medicine, error) {
	if m.Finder == nil {
		return nil, errors.New("inventory matcher not configured")
	}
	name = strings.TrimSpace(name)
	batch = strings.TrimSpace(batch)
	if name == "" || batch == "" {
		return nil, nil
	}
	return m.Finder.FindMatch(ctx, name, batch)
}

// NameMatches reports whether text is contained in the medicine's name or
// generic name, ignoring case.
func NameMatches(med Medicine, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(med.Name), needle) ||
		strings.Contains(strings.ToLower(med.GenericName), needle)
}

// likePattern escapes LIKE metacharacters so text matches literally.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
