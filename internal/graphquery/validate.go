package graphquery

import (
	"regexp"
	"strconv"
	"strings"
)

var forbiddenKeywords = []string{
	"CREATE", "MERGE", "DELETE", "SET", "DROP", "REMOVE",
	"CALL DB.", "CALL APOC.", "CREATE INDEX", "CREATE CONSTRAINT",
	"DROP INDEX", "DROP CONSTRAINT", "PERIODIC COMMIT", "LOAD CSV",
	"APOC.CONVERT.TOJSON", "PROPERTIES(",
}

var hopRangeRe = regexp.MustCompile(`\*\s*\d*\s*\.\.\s*(\d+)`)

// ValidationResult is the outcome of statically checking a translated
// query. Warnings annotate unknown labels/rel types without rejecting the
// query; Err is non-nil only for a hard rejection.
type ValidationResult struct {
	Warnings []string
	Err      error
}

// Validate statically checks a candidate graph query against the safety
// rules: non-empty, no forbidden keyword, carries both $cid and LIMIT, and
// every variable-length hop range stays within maxHops. Unknown labels and
// relationship types are reported as warnings, not rejections.
func Validate(query string, schema Schema, maxHops int) ValidationResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return ValidationResult{Err: errEmptyQuery}
	}

	upper := strings.ToUpper(q)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return ValidationResult{Err: errForbiddenKeyword(kw)}
		}
	}

	if !strings.Contains(q, "$cid") {
		return ValidationResult{Err: errMissingCID}
	}
	if !strings.Contains(upper, "LIMIT") {
		return ValidationResult{Err: errMissingLimit}
	}

	for _, m := range hopRangeRe.FindAllStringSubmatch(q, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && maxHops > 0 && n > maxHops {
			return ValidationResult{Err: errHopsExceedMax(n, maxHops)}
		}
	}

	var warnings []string
	warnings = append(warnings, unknownTokens(q, "labels", schema.Labels, labelTokenRe)...)
	warnings = append(warnings, unknownTokens(q, "relationship types", schema.RelationTypes, relTokenRe)...)
	return ValidationResult{Warnings: warnings}
}

var labelTokenRe = regexp.MustCompile(`:([A-Z][A-Za-z0-9_]*)`)
var relTokenRe = regexp.MustCompile(`\[[a-z0-9_]*:([A-Z_][A-Z0-9_]*)`)

func unknownTokens(q, kind string, known []string, re *regexp.Regexp) []string {
	allowed := map[string]bool{"LLCNode": true, "LLCEdge": true}
	for _, k := range known {
		allowed[k] = true
	}
	seen := map[string]bool{}
	var warnings []string
	for _, m := range re.FindAllStringSubmatch(q, -1) {
		tok := m[1]
		if allowed[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		warnings = append(warnings, "unknown "+kind+": "+tok)
	}
	return warnings
}
