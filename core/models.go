package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that identical content
// always produces the same identifier, which makes every write idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Hex returns the ID formatted as a fixed-width hex string.
// Graph store properties use this form because Neo4j integers are signed.
func (id ID) Hex() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// chunkIDPrefixLen is the number of text bytes mixed into a chunk ID.
const chunkIDPrefixLen = 64

// Chunk is a contiguous span of transcript text produced by the chunker.
// Chunks are immutable once created; their identity is derived from content
// so re-ingesting the same transcript never duplicates them.
type Chunk struct {
	Id          ID
	WorkspaceID string
	EpisodeID   string
	SourcePath  string
	Index       int
	StartOffset int
	EndOffset   int
	Speaker     string // empty when no speaker marker was found
	Timestamp   string // transcript-local timestamp like "00:14:32", empty when absent
	Text        string
}

// ChunkID computes the deterministic identifier for a chunk.
func ChunkID(episodeID, sourcePath string, index, startOffset, endOffset int, text string) ID {
	prefix := text
	if len(prefix) > chunkIDPrefixLen {
		prefix = prefix[:chunkIDPrefixLen]
	}
	return IDFromContent(fmt.Sprintf("%s|%s|%d|%d|%d|%s",
		episodeID, sourcePath, index, startOffset, endOffset, prefix))
}

// ConceptType categorizes a concept node.
type ConceptType string

const (
	ConceptTypeConcept        ConceptType = "Concept"
	ConceptTypePractice       ConceptType = "Practice"
	ConceptTypeCognitiveState ConceptType = "CognitiveState"
	ConceptTypePerson         ConceptType = "Person"
	ConceptTypePlace          ConceptType = "Place"
	ConceptTypeOrganization   ConceptType = "Organization"
	ConceptTypeEvent          ConceptType = "Event"
)

// ConceptTypes lists the valid concept type tags.
var ConceptTypes = []ConceptType{
	ConceptTypeConcept,
	ConceptTypePractice,
	ConceptTypeCognitiveState,
	ConceptTypePerson,
	ConceptTypePlace,
	ConceptTypeOrganization,
	ConceptTypeEvent,
}

// Provenance records where a piece of extracted knowledge came from.
type Provenance struct {
	EpisodeID   string
	SourcePath  string
	ChunkID     ID
	StartOffset int
	EndOffset   int
	Speaker     string
}

// Concept is a node in the knowledge graph. There is exactly one node per
// (workspace, canonical name, type); merges accumulate provenance rather
// than overwrite it.
type Concept struct {
	Id          ID
	WorkspaceID string
	Name        string
	Type        ConceptType
	Description string
	Confidence  float64
	Provenance  []Provenance
	EpisodeIDs  []string
	SourcePaths []string
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// ConceptID computes the deterministic identifier for a concept.
// The name must already be canonical (see normalize.CanonicalName).
func ConceptID(workspaceID, canonicalName string, conceptType ConceptType) ID {
	return IDFromContent(workspaceID + "|" + canonicalName + "|" + string(conceptType))
}

// RelationType is the type tag of a directed edge between two concepts.
type RelationType string

const (
	RelationCauses       RelationType = "CAUSES"
	RelationInfluences   RelationType = "INFLUENCES"
	RelationOptimizes    RelationType = "OPTIMIZES"
	RelationEnables      RelationType = "ENABLES"
	RelationReduces      RelationType = "REDUCES"
	RelationLeadsTo      RelationType = "LEADS_TO"
	RelationRequires     RelationType = "REQUIRES"
	RelationRelatesTo    RelationType = "RELATES_TO"
	RelationIsPartOf     RelationType = "IS_PART_OF"
	RelationCrossEpisode RelationType = "CROSS_EPISODE"
)

// RelationTypes lists the valid relationship types extraction may produce.
// CROSS_EPISODE is excluded: only the cross-episode linker creates those edges.
var RelationTypes = []RelationType{
	RelationCauses,
	RelationInfluences,
	RelationOptimizes,
	RelationEnables,
	RelationReduces,
	RelationLeadsTo,
	RelationRequires,
	RelationRelatesTo,
	RelationIsPartOf,
}

// Relationship is a directed, typed edge between two concepts.
// It is uniquely keyed by (workspace, source id, target id, type); repeated
// extraction of the same edge updates confidence and provenance, never
// creates a duplicate edge.
type Relationship struct {
	Id          ID
	WorkspaceID string
	SourceID    ID
	TargetID    ID
	Type        RelationType
	Confidence  float64
	Provenance  []Provenance
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// RelationshipID computes the deterministic identifier for a relationship.
func RelationshipID(workspaceID string, sourceID, targetID ID, relType RelationType) ID {
	return IDFromContent(workspaceID + "|" + sourceID.Hex() + "|" + targetID.Hex() + "|" + string(relType))
}

// Quote is an exact text span attributed to a speaker. Quotes are
// append-only and deduplicated by content hash; they hold weak references
// to the concepts they illustrate.
type Quote struct {
	Id          ID
	WorkspaceID string
	EpisodeID   string
	Text        string
	Speaker     string
	Timestamp   string
	StartOffset int
	ConceptIDs  []ID
	InsertedAt  time.Time
}

// QuoteID computes the deterministic identifier for a quote.
func QuoteID(workspaceID, episodeID string, startOffset int, text string) ID {
	return IDFromContent(fmt.Sprintf("%s|%s|%d|%s", workspaceID, episodeID, startOffset, text))
}

// TurnRole identifies the author of a session turn.
type TurnRole int

const (
	// TurnRoleUser represents the human asking questions.
	TurnRoleUser TurnRole = iota + 1
	// TurnRoleAssistant represents synthesized answers.
	TurnRoleAssistant
)

// Turn is one entry in a session's conversation history.
// Turns are append-only; a session is destroyed only by explicit deletion.
type Turn struct {
	WorkspaceID string
	SessionID   string
	Seq         uint64
	Role        TurnRole
	Content     string
	Metadata    map[string]string
	CreatedAt   time.Time
}
