package graphquery

import (
	"fmt"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// keywordsFromQuestion extracts the question's keyword tokens (length>2,
// lowercased) for the deterministic fallback's summary/label match.
func keywordsFromQuestion(q string) []string {
	var out []string
	for _, tok := range wordRe.FindAllString(strings.ToLower(q), -1) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// BuildFallbackQuery assembles a deterministic, dependency-free graph
// query when the remote translator or the validator rejects the model's
// output: match up to k LLCNodes whose summary or label contains any
// question keyword, then expand up to maxHops hops (one when maxHops <= 0)
// and project nodes/rel_maps in the shape the execution stage expects.
func BuildFallbackQuery(containerID, question string, maxHops, k int) string {
	keywords := keywordsFromQuestion(question)
	if len(keywords) == 0 {
		keywords = []string{""}
	}

	var clauses []string
	for _, kw := range keywords {
		escaped := regexp.QuoteMeta(kw)
		clauses = append(clauses, fmt.Sprintf("toLower(n.summary) =~ '.*%s.*' OR toLower(n.label) =~ '.*%s.*'", escaped, escaped))
	}
	hops := maxHops
	if hops <= 0 {
		hops = 1
	}

	return fmt.Sprintf(
		`MATCH (n) WHERE n.container_id = $cid AND (%s) WITH n LIMIT %d
OPTIONAL MATCH (n)-[r*1..%d]-(m) WHERE m.container_id = $cid
RETURN collect(DISTINCT n) + collect(DISTINCT m) AS nodes, collect(DISTINCT r) AS rel_maps LIMIT %d`,
		strings.Join(clauses, " OR "), k, hops, k)
}
