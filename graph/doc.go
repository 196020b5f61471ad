// Package graph persists the knowledge graph in Neo4j.
//
// Concepts, relationships and quotes are merged on their deterministic ids,
// so re-ingesting the same material updates nodes in place instead of
// duplicating them. The package also canonicalizes extracted concept names,
// answers keyword searches for the retrieval graph path, and links concepts
// that recur across episodes.
package graph
