package graphquery

import (
	"context"
	"fmt"
	"strings"
)

// Schema describes the node labels and relationship types a translated
// query is allowed to reference, beyond the always-allowed LLCNode/LLCEdge
// wildcard markers.
type Schema struct {
	Labels        []string
	RelationTypes []string
}

// TranslateRequest is one NL->graph-query translation call.
type TranslateRequest struct {
	ContainerID string
	Query       string
	Schema      Schema
	MaxHops     int
	K           int
}

// Translator asks a remote chat model for a read-only graph query string
// given a natural-language question and the container's known schema.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

func translationPrompt(req TranslateRequest) string {
	return fmt.Sprintf(`Translate the following question into a single read-only graph query.
Rules:
- every node pattern must be filtered by container_id: $cid
- use only labels in {LLCNode, %s}
- use only relationship types in {LLCEdge, %s}
- no CREATE, MERGE, DELETE, SET, DROP, REMOVE, or schema/procedure keywords
- variable-length patterns must not exceed *..%d hops
- return exactly two projections named "nodes" and "rel_maps"
- end with LIMIT %d
Respond with the query text only, no explanation, no code fences.

Question: %s`, strings.Join(req.Schema.Labels, ", "), strings.Join(req.Schema.RelationTypes, ", "), req.MaxHops, req.K, req.Query)
}

// cleanQueryText strips code fences and any leading prose before the first
// clause keyword, mirroring the teacher's response-cleanup helpers for
// stripping markdown wrapping off model output.
func cleanQueryText(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```cypher")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	upper := strings.ToUpper(s)
	firstClause := len(s)
	for _, kw := range []string{"MATCH", "WITH", "OPTIONAL MATCH", "UNWIND", "RETURN", "CALL"} {
		if i := strings.Index(upper, kw); i >= 0 && i < firstClause {
			firstClause = i
		}
	}
	if firstClause < len(s) {
		s = s[firstClause:]
	}
	return strings.TrimSpace(s)
}

var bannedJSONHelpers = []string{"apoc.convert.toJson", "properties("}

func stripBannedFunctions(q string) string {
	for _, fn := range bannedJSONHelpers {
		q = strings.ReplaceAll(q, fn, "")
	}
	return q
}

func ensureLimit(q string, k int) string {
	if strings.Contains(strings.ToUpper(q), "LIMIT") {
		return q
	}
	return strings.TrimRight(q, "; \n\t") + fmt.Sprintf(" LIMIT %d", k)
}

// normalizeTranslated applies the translator's post-processing pipeline:
// strip fences/prose, remove banned helper calls, and append LIMIT if the
// model omitted it.
func normalizeTranslated(raw string, k int) string {
	q := cleanQueryText(raw)
	q = stripBannedFunctions(q)
	q = ensureLimit(q, k)
	return q
}
