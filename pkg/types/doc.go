// Package types defines the graph record types shared across the service:
// entity nodes, relationship edges with temporal validity bounds, and the
// episode unit submitted for extraction.
package types
