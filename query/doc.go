// Package query answers questions over the knowledge graph and vector
// index. A planner classifies the question's intent, the hybrid retriever
// runs the vector and graph paths concurrently, the reranker fuses both
// rankings with reciprocal rank fusion and diversifies with maximal
// marginal relevance, and the synthesizer streams a grounded answer built
// from the surviving context plus the session's recent turns.
package query
