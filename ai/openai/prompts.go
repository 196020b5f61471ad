package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/episteme/core"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "concepts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "chunk": {"type": "integer", "minimum": 0}
        },
        "required": ["name", "type", "confidence", "chunk"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "type": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "chunk": {"type": "integer", "minimum": 0}
        },
        "required": ["source", "target", "type", "confidence", "chunk"],
        "additionalProperties": false
      }
    },
    "quotes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "speaker": {"type": "string"},
          "timestamp": {"type": "string"},
          "concepts": {"type": "array", "items": {"type": "string"}},
          "chunk": {"type": "integer", "minimum": 0}
        },
        "required": ["text", "chunk"],
        "additionalProperties": false
      }
    }
  },
  "required": ["concepts", "relationships", "quotes"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `You are a knowledge extraction engine. You receive numbered transcript
segments and return the structured knowledge they contain as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- The "chunk" field is the zero-based number of the segment the item came from.
- Concept "type" must match exactly one of: %s.
- Relationship "type" must match exactly one of: %s.
- Relationship "source" and "target" are concept names that must also appear in "concepts".
- "confidence" expresses how clearly the text supports the item, from 0 (guess) to 1 (explicit).
- Quotes must be exact verbatim spans from the segment text; never paraphrase.
- Include only knowledge explicitly stated or clearly implied. Do not hallucinate.
- If a segment contains nothing noteworthy, contribute nothing for it.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
[0] HOST: I started meditating daily and my focus improved within weeks.
Output:
{
  "concepts": [
    {"name":"meditation","type":"Practice","description":"daily meditation practice","confidence":0.95,"chunk":0},
    {"name":"focus","type":"CognitiveState","description":"ability to concentrate","confidence":0.9,"chunk":0}
  ],
  "relationships": [
    {"source":"meditation","target":"focus","type":"OPTIMIZES","confidence":0.85,"chunk":0}
  ],
  "quotes": [
    {"text":"I started meditating daily and my focus improved within weeks.","speaker":"HOST","timestamp":"","concepts":["meditation","focus"],"chunk":0}
  ]
}`

// buildExtractionPrompt creates the extraction system prompt with the type
// vocabularies embedded.
func buildExtractionPrompt() string {
	conceptTypes := make([]string, len(core.ConceptTypes))
	for i, t := range core.ConceptTypes {
		conceptTypes[i] = string(t)
	}
	relationTypes := make([]string, len(core.RelationTypes))
	for i, t := range core.RelationTypes {
		relationTypes[i] = string(t)
	}
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(conceptTypes, ", "),
		strings.Join(relationTypes, ", "))
}

// buildExtractionInput numbers the chunk texts so the model can attribute
// items back to their originating segment.
func buildExtractionInput(texts []string) string {
	var sb strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i, text)
	}
	return sb.String()
}

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "intent": {"type": "string", "enum": ["greeting", "out_of_scope", "knowledge", "memory", "system_info"]},
    "strategy": {"type": "string", "enum": ["none", "vector", "graph", "hybrid"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["intent", "strategy", "confidence"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `Classify the user's question for a knowledge base built from conversational
transcripts. Return JSON only, matching this schema exactly:

%s

Intent meanings:
- greeting: small talk, pleasantries, no information need.
- out_of_scope: unrelated to any transcript content (math puzzles, weather, general trivia).
- knowledge: asks about topics, people, claims, or quotes from the transcripts.
- memory: asks about the current conversation itself ("what did I ask before?").
- system_info: asks what this system is or can do.

Strategy meanings:
- none: no retrieval needed (greeting, out_of_scope, memory, system_info).
- vector: a broad or fuzzy topical question; semantic chunk search suffices.
- graph: asks specifically about relationships between named concepts.
- hybrid: anything else, or when unsure.

Start your response with { and end with }. No other text.`

// buildClassificationPrompt creates the planner's classification prompt.
func buildClassificationPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate, classificationResponseSchema)
}
