package extract

import (
	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
)

// ConceptRecord is a raw extracted concept tagged with the provenance of the
// chunk it came from. Names are still free-form; the normalizer
// canonicalizes them before writing.
type ConceptRecord struct {
	Concept    ai.ExtractedConcept
	Provenance core.Provenance
}

// RelationshipRecord is a raw extracted relationship tagged with provenance.
// Endpoints reference concepts by name until the normalizer rewrites them.
type RelationshipRecord struct {
	Relationship ai.ExtractedRelationship
	Provenance   core.Provenance
}

// QuoteRecord is a raw extracted quote tagged with provenance.
type QuoteRecord struct {
	Quote      ai.ExtractedQuote
	Provenance core.Provenance
}

// FailedBatch records a batch whose extraction failed after exhausting
// retries. The run continues without its contribution.
type FailedBatch struct {
	Index    int
	ChunkIDs []core.ID
	Reason   string
}

// Result is the output of one extraction run.
type Result struct {
	Concepts      []ConceptRecord
	Relationships []RelationshipRecord
	Quotes        []QuoteRecord
	Failed        []FailedBatch
}
