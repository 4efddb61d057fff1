// Package mindflow coordinates per-request provider credentials, a shared
// graph store, and the knowledge-graph extraction engine behind MindFlow's
// HTTP API.
//
// Callers bring their own API keys on every request (the service stores no
// credentials); this package routes those keys to the right vendor clients,
// keeps the store's indices built, and projects session sub-graphs into the
// client-facing response shape.
package mindflow
