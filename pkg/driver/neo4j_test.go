package driver

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindflow-live/mindflow/pkg/types"
)

func TestWithGroupDerivesIndependentHandle(t *testing.T) {
	d, err := NewNeo4jDriver(Options{Host: "localhost", Port: 7687})
	require.NoError(t, err)

	a := d.WithGroup("session-a")
	b := d.WithGroup("session-b")

	assert.Equal(t, "session-a", a.Group())
	assert.Equal(t, "session-b", b.Group())
	assert.Equal(t, "", d.Group(), "root handle must stay unbound")
}

func TestNodeFromDBNode(t *testing.T) {
	dbNode := dbtype.Node{
		Labels: []string{"Entity", "Person"},
		Props: map[string]any{
			"uuid":       "n1",
			"name":       "Alice",
			"summary":    "A software engineer",
			"group_id":   "session-1",
			"created_at": "2024-01-01T00:00:00Z",
		},
	}

	node := nodeFromDBNode(dbNode)
	assert.Equal(t, "n1", node.Uuid)
	assert.Equal(t, "Alice", node.Name)
	assert.Equal(t, "A software engineer", node.Summary)
	assert.Equal(t, "session-1", node.GroupID)
	assert.Equal(t, []string{"Entity", "Person"}, node.Labels)
	assert.Equal(t, 2024, node.CreatedAt.Year())
}

func TestEdgeFromDBRelation(t *testing.T) {
	rel := dbtype.Relationship{
		Props: map[string]any{
			"uuid":           "e1",
			"name":           "WORKS_AT",
			"fact":           "Alice works at Acme",
			"group_id":       "session-1",
			"created_at":     "2024-01-02T00:00:00Z",
			"valid_at":       "2024-01-01T00:00:00Z",
			"fact_embedding": "[0.1,0.2]",
		},
	}

	edge := edgeFromDBRelation(rel, "n1", "n2")
	assert.Equal(t, "e1", edge.Uuid)
	assert.Equal(t, "n1", edge.SourceNodeID)
	assert.Equal(t, "n2", edge.TargetNodeID)
	assert.Equal(t, "WORKS_AT", edge.Name)
	assert.Equal(t, "Alice works at Acme", edge.Fact)
	require.NotNil(t, edge.ValidAt)
	assert.Nil(t, edge.InvalidAt, "absent invalid_at must stay nil")
	assert.Equal(t, []float32{0.1, 0.2}, edge.FactEmbedding)
}

func TestEdgePropertiesRoundTrip(t *testing.T) {
	valid := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	edge := &types.Edge{
		Uuid:          "e1",
		SourceNodeID:  "n1",
		TargetNodeID:  "n2",
		GroupID:       "session-1",
		Name:          "WORKS_AT",
		Fact:          "Alice works at Acme",
		CreatedAt:     valid,
		ValidAt:       &valid,
		FactEmbedding: []float32{0.5, 0.25},
	}

	props := edgeToProperties(edge)
	assert.Equal(t, "2024-01-01T00:00:00Z", props["valid_at"])
	_, hasInvalid := props["invalid_at"]
	assert.False(t, hasInvalid, "nil invalid_at must not be written")
	assert.Equal(t, "[0.5,0.25]", props["fact_embedding"])
}

func TestValidLabel(t *testing.T) {
	assert.True(t, validLabel("Person"))
	assert.True(t, validLabel("Organization_2"))
	assert.False(t, validLabel(""))
	assert.False(t, validLabel("Person) DETACH DELETE (n"))
	assert.False(t, validLabel("has space"))
	assert.False(t, validLabel("3d"), "digit-leading label is invalid unquoted Cypher")
	assert.False(t, validLabel("_private"))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched dims score zero")
}
