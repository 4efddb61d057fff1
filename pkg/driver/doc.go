// Package driver provides the graph database access layer. The GraphDriver
// interface covers the group-scoped reads the service performs and the bulk
// writes the extraction engine performs; Neo4jDriver implements it over the
// bolt protocol.
package driver
