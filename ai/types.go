package ai

// Extraction is the structured output of one batch extraction call.
type Extraction struct {
	Concepts      []ExtractedConcept
	Relationships []ExtractedRelationship
	Quotes        []ExtractedQuote
}

// ExtractedConcept is a concept as the model reported it, before
// normalization. Names are free-form and may need canonicalization.
type ExtractedConcept struct {
	// Name is the concept identifier as it appeared in the text.
	Name string

	// Type is one of the concept type tags (Concept, Practice,
	// CognitiveState, Person, Place, Organization, Event).
	Type string

	// Description is a short free-text description of the concept.
	Description string

	// Confidence is the model's confidence in [0,1].
	Confidence float64

	// ChunkIndex is the position of the originating chunk within the batch.
	ChunkIndex int
}

// ExtractedRelationship is a directed edge between two concept names.
// Endpoints reference concepts by name; the normalizer rewrites them to ids.
type ExtractedRelationship struct {
	Source     string
	Target     string
	Type       string
	Confidence float64
	ChunkIndex int
}

// ExtractedQuote is an exact text span the model identified as notable.
type ExtractedQuote struct {
	Text       string
	Speaker    string
	Timestamp  string
	Concepts   []string // names of concepts the quote illustrates
	ChunkIndex int
}

// Classification is the result of best-effort question classification.
type Classification struct {
	// Intent is one of: greeting, out_of_scope, knowledge, memory, system_info.
	Intent string

	// Strategy is one of: none, vector, graph, hybrid.
	Strategy string

	// Confidence is the model's confidence in [0,1].
	Confidence float64
}
