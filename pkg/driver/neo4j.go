package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// Neo4jDriver implements the GraphDriver interface for Neo4j-compatible
// (bolt protocol) databases.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
	group    string
}

// Options holds connection settings for NewNeo4jDriver.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// NewNeo4jDriver creates a new driver instance. The connection is verified
// lazily; construction only fails on malformed settings.
func NewNeo4jDriver(opts Options) (*Neo4jDriver, error) {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 7687
	}

	uri := fmt.Sprintf("bolt://%s:%d", opts.Host, opts.Port)
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}

	database := opts.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jDriver{
		client:   client,
		database: database,
	}, nil
}

// WithGroup derives a handle bound to a single group. The copy shares the
// connection pool but opens its own sessions, so no transaction state leaks
// between groups.
func (n *Neo4jDriver) WithGroup(groupID string) GraphDriver {
	derived := *n
	derived.group = groupID
	return &derived
}

// Group returns the group this handle is bound to.
func (n *Neo4jDriver) Group() string {
	return n.group
}

// GetEntityNodesByGroup retrieves all entity nodes for a group.
func (n *Neo4jDriver) GetEntityNodesByGroup(ctx context.Context, groupID string) ([]*types.Node, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {group_id: $group_id})
			RETURN e
			ORDER BY e.created_at
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"group_id": groupID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity nodes for group %s: %w", groupID, err)
	}

	records := result.([]*db.Record)
	nodes := make([]*types.Node, 0, len(records))
	for _, record := range records {
		nodeValue, found := record.Get("e")
		if !found {
			continue
		}
		dbNode, ok := nodeValue.(dbtype.Node)
		if !ok {
			continue
		}
		nodes = append(nodes, nodeFromDBNode(dbNode))
	}

	return nodes, nil
}

// GetEntityEdgesByGroup retrieves all entity edges for a group.
func (n *Neo4jDriver) GetEntityEdgesByGroup(ctx context.Context, groupID string) ([]*types.Edge, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (s:Entity)-[r:RELATES_TO {group_id: $group_id}]->(t:Entity)
			RETURN r, s.uuid AS source_id, t.uuid AS target_id
			ORDER BY r.created_at
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"group_id": groupID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity edges for group %s: %w", groupID, err)
	}

	return edgesFromRecords(result.([]*db.Record)), nil
}

// GetEdgesBetween retrieves edges connecting two specific nodes in either
// direction within a group.
func (n *Neo4jDriver) GetEdgesBetween(ctx context.Context, sourceID, targetID, groupID string) ([]*types.Edge, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (s:Entity {group_id: $group_id})-[r:RELATES_TO]-(t:Entity)
			WHERE s.uuid = $source_id AND t.uuid = $target_id
			RETURN r, startNode(r).uuid AS source_id, endNode(r).uuid AS target_id
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"group_id":  groupID,
			"source_id": sourceID,
			"target_id": targetID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get edges between %s and %s: %w", sourceID, targetID, err)
	}

	return edgesFromRecords(result.([]*db.Record)), nil
}

// UpsertNodes creates or updates nodes in bulk with a single UNWIND query.
// Classification labels are applied per node afterwards because Cypher does
// not support parameterized labels inside UNWIND without APOC.
func (n *Neo4jDriver) UpsertNodes(ctx context.Context, nodes []*types.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodeDataList := make([]map[string]any, 0, len(nodes))
		for _, node := range nodes {
			nodeDataList = append(nodeDataList, map[string]any{
				"uuid":       node.Uuid,
				"group_id":   node.GroupID,
				"properties": nodeToProperties(node),
			})
		}

		query := `
			UNWIND $nodes AS node_data
			MERGE (n:Entity {uuid: node_data.uuid, group_id: node_data.group_id})
			SET n += node_data.properties
		`
		if _, err := tx.Run(ctx, query, map[string]any{"nodes": nodeDataList}); err != nil {
			return nil, fmt.Errorf("failed to bulk upsert nodes: %w", err)
		}

		for _, node := range nodes {
			for _, label := range node.Labels {
				if label == "" || strings.EqualFold(label, "Entity") {
					continue
				}
				if !validLabel(label) {
					continue
				}
				labelQuery := fmt.Sprintf(`
					MATCH (n:Entity {uuid: $uuid, group_id: $group_id})
					SET n:%s
				`, label)
				if _, err := tx.Run(ctx, labelQuery, map[string]any{
					"uuid":     node.Uuid,
					"group_id": node.GroupID,
				}); err != nil {
					return nil, fmt.Errorf("failed to set label for node %s: %w", node.Uuid, err)
				}
			}
		}

		return nil, nil
	})

	return err
}

// UpsertEdges creates or updates edges in bulk with a single UNWIND query.
func (n *Neo4jDriver) UpsertEdges(ctx context.Context, edges []*types.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		edgeDataList := make([]map[string]any, 0, len(edges))
		for _, edge := range edges {
			edgeDataList = append(edgeDataList, map[string]any{
				"uuid":       edge.Uuid,
				"source_id":  edge.SourceNodeID,
				"target_id":  edge.TargetNodeID,
				"group_id":   edge.GroupID,
				"properties": edgeToProperties(edge),
			})
		}

		query := `
			UNWIND $edges AS edge_data
			MATCH (s:Entity {uuid: edge_data.source_id, group_id: edge_data.group_id})
			MATCH (t:Entity {uuid: edge_data.target_id, group_id: edge_data.group_id})
			MERGE (s)-[r:RELATES_TO {uuid: edge_data.uuid, group_id: edge_data.group_id}]->(t)
			SET r += edge_data.properties
		`
		if _, err := tx.Run(ctx, query, map[string]any{"edges": edgeDataList}); err != nil {
			return nil, fmt.Errorf("failed to bulk upsert edges: %w", err)
		}

		return nil, nil
	})

	return err
}

// InvalidateEdge closes an edge's temporal validity.
func (n *Neo4jDriver) InvalidateEdge(ctx context.Context, edgeID, groupID string, invalidAt string) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH ()-[r:RELATES_TO {uuid: $uuid, group_id: $group_id}]->()
			SET r.invalid_at = $invalid_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"uuid":       edgeID,
			"group_id":   groupID,
			"invalid_at": invalidAt,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate edge %s: %w", edgeID, err)
	}
	return nil
}

// SearchEdgesByEmbedding fetches the group's embedded edges and ranks them by
// cosine similarity in memory, mirroring the engine's vector search behavior
// for stores without native vector indices.
func (n *Neo4jDriver) SearchEdgesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Edge, error) {
	if len(embedding) == 0 {
		return []*types.Edge{}, nil
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (s:Entity)-[r:RELATES_TO {group_id: $group_id}]->(t:Entity)
			WHERE r.fact_embedding IS NOT NULL
			RETURN r, s.uuid AS source_id, t.uuid AS target_id
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"group_id": groupID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search edges for group %s: %w", groupID, err)
	}

	type candidate struct {
		edge       *types.Edge
		similarity float32
	}

	var candidates []candidate
	for _, record := range result.([]*db.Record) {
		relationValue, found := record.Get("r")
		if !found {
			continue
		}
		dbRelation, ok := relationValue.(dbtype.Relationship)
		if !ok {
			continue
		}
		sourceID, _ := record.Get("source_id")
		targetID, _ := record.Get("target_id")
		srcStr, ok := sourceID.(string)
		if !ok {
			continue
		}
		tgtStr, ok := targetID.(string)
		if !ok {
			continue
		}
		edge := edgeFromDBRelation(dbRelation, srcStr, tgtStr)
		if len(edge.FactEmbedding) == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			edge:       edge,
			similarity: cosineSimilarity(embedding, edge.FactEmbedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	edges := make([]*types.Edge, len(candidates))
	for i, c := range candidates {
		edges[i] = c.edge
	}
	return edges, nil
}

// CreateIndices creates database indices and constraints. All DDL uses
// IF NOT EXISTS, so duplicate build attempts are safe.
func (n *Neo4jDriver) CreateIndices(ctx context.Context) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	indices := []string{
		"CREATE CONSTRAINT entity_uuid_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.uuid IS UNIQUE",
		"CREATE INDEX entity_group IF NOT EXISTS FOR (n:Entity) ON (n.group_id)",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name)",
		"CREATE INDEX entity_created_at IF NOT EXISTS FOR (n:Entity) ON (n.created_at)",
		"CREATE INDEX relates_to_group IF NOT EXISTS FOR ()-[r:RELATES_TO]-() ON (r.group_id)",
	}

	for _, indexQuery := range indices {
		if _, err := session.Run(ctx, indexQuery, nil); err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "An equivalent") {
				return err
			}
		}
	}

	return nil
}

// Ping verifies connectivity to the database.
func (n *Neo4jDriver) Ping(ctx context.Context) error {
	return n.client.VerifyConnectivity(ctx)
}

// Close releases all resources held by the driver.
func (n *Neo4jDriver) Close() error {
	return n.client.Close(context.Background())
}

func edgesFromRecords(records []*db.Record) []*types.Edge {
	edges := make([]*types.Edge, 0, len(records))
	for _, record := range records {
		relationValue, found := record.Get("r")
		if !found {
			continue
		}
		dbRelation, ok := relationValue.(dbtype.Relationship)
		if !ok {
			continue
		}
		sourceID, _ := record.Get("source_id")
		targetID, _ := record.Get("target_id")
		srcStr, ok := sourceID.(string)
		if !ok {
			continue
		}
		tgtStr, ok := targetID.(string)
		if !ok {
			continue
		}
		edges = append(edges, edgeFromDBRelation(dbRelation, srcStr, tgtStr))
	}
	return edges
}

func nodeFromDBNode(dbNode dbtype.Node) *types.Node {
	node := &types.Node{
		Labels: dbNode.Labels,
	}

	if uuid, ok := dbNode.Props["uuid"].(string); ok {
		node.Uuid = uuid
	}
	if name, ok := dbNode.Props["name"].(string); ok {
		node.Name = name
	}
	if summary, ok := dbNode.Props["summary"].(string); ok {
		node.Summary = summary
	}
	if groupID, ok := dbNode.Props["group_id"].(string); ok {
		node.GroupID = groupID
	}
	node.CreatedAt = timeFromProp(dbNode.Props["created_at"])
	if embeddingStr, ok := dbNode.Props["name_embedding"].(string); ok {
		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingStr), &embedding); err == nil {
			node.NameEmbedding = embedding
		}
	}

	return node
}

func edgeFromDBRelation(rel dbtype.Relationship, sourceID, targetID string) *types.Edge {
	edge := &types.Edge{
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
	}

	if uuid, ok := rel.Props["uuid"].(string); ok {
		edge.Uuid = uuid
	}
	if name, ok := rel.Props["name"].(string); ok {
		edge.Name = name
	}
	if fact, ok := rel.Props["fact"].(string); ok {
		edge.Fact = fact
	}
	if groupID, ok := rel.Props["group_id"].(string); ok {
		edge.GroupID = groupID
	}
	edge.CreatedAt = timeFromProp(rel.Props["created_at"])
	if t := timeFromProp(rel.Props["valid_at"]); !t.IsZero() {
		edge.ValidAt = &t
	}
	if t := timeFromProp(rel.Props["invalid_at"]); !t.IsZero() {
		edge.InvalidAt = &t
	}
	if embeddingStr, ok := rel.Props["fact_embedding"].(string); ok {
		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingStr), &embedding); err == nil {
			edge.FactEmbedding = embedding
		}
	}

	return edge
}

func nodeToProperties(node *types.Node) map[string]any {
	props := map[string]any{
		"uuid":     node.Uuid,
		"name":     node.Name,
		"group_id": node.GroupID,
		"summary":  node.Summary,
	}
	if !node.CreatedAt.IsZero() {
		props["created_at"] = node.CreatedAt.UTC().Format(time.RFC3339)
	}
	if len(node.NameEmbedding) > 0 {
		if data, err := json.Marshal(node.NameEmbedding); err == nil {
			props["name_embedding"] = string(data)
		}
	}
	return props
}

func edgeToProperties(edge *types.Edge) map[string]any {
	props := map[string]any{
		"uuid":     edge.Uuid,
		"name":     edge.Name,
		"fact":     edge.Fact,
		"group_id": edge.GroupID,
	}
	if !edge.CreatedAt.IsZero() {
		props["created_at"] = edge.CreatedAt.UTC().Format(time.RFC3339)
	}
	if edge.ValidAt != nil {
		props["valid_at"] = edge.ValidAt.UTC().Format(time.RFC3339)
	}
	if edge.InvalidAt != nil {
		props["invalid_at"] = edge.InvalidAt.UTC().Format(time.RFC3339)
	}
	if len(edge.FactEmbedding) > 0 {
		if data, err := json.Marshal(edge.FactEmbedding); err == nil {
			props["fact_embedding"] = string(data)
		}
	}
	return props
}

// timeFromProp handles both string (RFC3339) and native temporal properties.
func timeFromProp(value any) time.Time {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case time.Time:
		return v
	case dbtype.LocalDateTime:
		return v.Time()
	}
	return time.Time{}
}

// validLabel rejects label strings that could break out of the Cypher label
// position, since labels cannot be parameterized. Unquoted labels must start
// with a letter.
func validLabel(label string) bool {
	for i, r := range label {
		if i == 0 && !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return label != ""
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
