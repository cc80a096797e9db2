package retrieve

import (
	"strings"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true,
	"is": true, "are": true, "to": true, "in": true, "on": true, "for": true,
	"with": true, "by": true, "at": true, "as": true, "be": true, "it": true,
	"what": true, "how": true, "why": true, "when": true, "where": true, "who": true,
}

// synonyms is a tiny static map used to produce a keyword-form query
// variant alongside the original. Deliberately small: the goal is
// cheap recall, not a thesaurus.
var synonyms = map[string]string{
	"bug":     "defect",
	"error":   "failure",
	"doc":     "document",
	"config":  "configuration",
	"repo":    "repository",
	"perf":    "performance",
}

var punctuation = strings.NewReplacer(
	",", " ", ".", " ", "!", " ", "?", " ", ";", " ", ":", " ",
	"\"", " ", "'", " ", "(", " ", ")", " ", "[", " ", "]", " ",
)

// ExpandQuery produces 1-2 query variants: the original (trimmed,
// whitespace-normalized) and, when it differs, a keyword-only form with
// stopwords and short tokens dropped and synonyms substituted.
func ExpandQuery(q string) []string {
	original := normalizeWhitespace(q)
	if original == "" {
		return nil
	}

	stripped := punctuation.Replace(strings.ToLower(original))
	fields := strings.Fields(stripped)
	kept := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		if syn, ok := synonyms[tok]; ok {
			kept = append(kept, syn)
		} else {
			kept = append(kept, tok)
		}
	}
	keyword := strings.Join(kept, " ")

	variants := []string{original}
	if keyword != "" && !strings.EqualFold(keyword, original) {
		variants = append(variants, keyword)
	}
	return variants
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' {
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
