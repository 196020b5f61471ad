// Package vector defines the workspace-scoped vector store contract and the
// embedding indexer that fills it. Vectors are unit-normalized on the way
// in, so similarity is a plain dot product at query time. Entry ids are the
// chunk ids they index, which makes re-indexing overwrite instead of grow.
package vector
