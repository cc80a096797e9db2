package graphquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicExtractor_CoOccurrence(t *testing.T) {
	t.Parallel()
	h := HeuristicExtractor{}
	res, err := h.Extract(context.Background(), "Alice Johnson met Bob Smith to discuss the Phoenix Project. Separately, Acme Corporation filed a report.", "english")
	require.NoError(t, err)
	require.NotEmpty(t, res.Entities)

	names := map[string]bool{}
	for _, e := range res.Entities {
		names[e.Name] = true
	}
	require.True(t, names["Alice Johnson"] || names["Bob Smith"])

	for _, r := range res.Relations {
		require.Equal(t, RelCoOccurs, r.Type)
		require.NotEqual(t, r.SourceID, r.TargetID)
	}
}

func TestNormalizeNodeType_UnknownCollapsesToConcept(t *testing.T) {
	t.Parallel()
	require.Equal(t, NodeConcept, NormalizeNodeType("Spaceship"))
	require.Equal(t, NodePerson, NormalizeNodeType("Person"))
}

func TestNormalizeRelationType_UnknownCollapsesToRelatedTo(t *testing.T) {
	t.Parallel()
	require.Equal(t, RelRelatedTo, NormalizeRelationType("FLIES_WITH"))
	require.Equal(t, RelOwns, NormalizeRelationType("OWNS"))
}

func TestParseExtractionJSON_StripsSurroundingText(t *testing.T) {
	t.Parallel()
	raw := "Here is the JSON:\n```json\n{\"entities\":[{\"id\":\"acme\",\"type\":\"Organization\",\"name\":\"Acme\"}],\"relations\":[{\"source\":\"acme\",\"target\":\"bob\",\"type\":\"EMPLOYS\"}]}\n```\nDone."
	res, err := parseExtractionJSON(raw)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	require.Equal(t, NodeOrganization, res.Entities[0].Type)
	require.Len(t, res.Relations, 1)
	require.Equal(t, RelRelatedTo, res.Relations[0].Type)
}
