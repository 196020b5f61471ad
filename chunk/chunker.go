// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"regexp"
	"strings"

	"github.com/poiesic/episteme/core"
)

const (
	defaultWindowSize = 2000
	defaultOverlap    = 200
)

// Timestamp markers like "[00:14:32] — Alice" or "[1:02:03] - Bob",
// and bare speaker turns like "ALICE:" at the start of a line.
var (
	timestampMarkerRe = regexp.MustCompile(`(?m)^\[(\d{1,2}:\d{2}(?::\d{2})?)\]\s*(?:[—-]\s*)?([^\n:]*?)\s*:?\s*$|^\[(\d{1,2}:\d{2}(?::\d{2})?)\]\s*(?:[—-]\s*)?([A-Za-z][^\n:]*):`)
	speakerMarkerRe   = regexp.MustCompile(`(?m)^([A-Z][A-Z0-9 _.'-]{0,40}):`)
)

// Episode identifies the transcript being chunked.
type Episode struct {
	WorkspaceID string
	EpisodeID   string
	SourcePath  string
}

// Chunker splits transcripts into overlapping, speaker-aware windows.
// Splitting is fully deterministic: identical input always yields identical
// chunk boundaries, which downstream identifiers depend on.
type Chunker struct {
	windowSize int
	overlap    int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithWindowSize sets the target chunk size in characters.
// Default is 2000.
func WithWindowSize(size int) Option {
	return func(c *Chunker) error {
		if size < 1 {
			return ErrInvalidWindowSize
		}
		c.windowSize = size
		return nil
	}
}

// WithOverlap sets the number of characters consecutive chunks share.
// Default is 200. Must be smaller than the window size.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) error {
		if overlap < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = overlap
		return nil
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		windowSize: defaultWindowSize,
		overlap:    defaultOverlap,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.windowSize {
		return nil, ErrInvalidOverlap
	}
	return c, nil
}

// marker is a recognized speaker or timestamp boundary in the source text.
type marker struct {
	offset    int
	timestamp string
	speaker   string
}

// Split chunks the transcript text into an ordered sequence of Chunks with
// exact character offsets into the source. Boundaries prefer speaker-turn or
// timestamp markers when one lies in the back half of the window; otherwise
// the window breaks at the character count.
func (c *Chunker) Split(episode Episode, text string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	markers := findMarkers(text)

	var chunks []core.Chunk
	start := 0
	index := 0
	for start < len(text) {
		end := start + c.windowSize
		if end >= len(text) {
			end = len(text)
		} else if b := lastMarkerIn(markers, start+c.windowSize/2, end); b > start {
			end = b
		}

		timestamp, speaker := activeMarker(markers, start)
		chunkText := text[start:end]
		chunks = append(chunks, core.Chunk{
			Id:          core.ChunkID(episode.EpisodeID, episode.SourcePath, index, start, end, chunkText),
			WorkspaceID: episode.WorkspaceID,
			EpisodeID:   episode.EpisodeID,
			SourcePath:  episode.SourcePath,
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
			Speaker:     speaker,
			Timestamp:   timestamp,
			Text:        chunkText,
		})
		index++

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// findMarkers locates all speaker/timestamp boundaries in source order.
func findMarkers(text string) []marker {
	var markers []marker

	for _, m := range timestampMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		mk := marker{offset: m[0]}
		if m[2] >= 0 {
			mk.timestamp = text[m[2]:m[3]]
			if m[4] >= 0 {
				mk.speaker = strings.TrimSpace(text[m[4]:m[5]])
			}
		} else if m[6] >= 0 {
			mk.timestamp = text[m[6]:m[7]]
			if m[8] >= 0 {
				mk.speaker = strings.TrimSpace(text[m[8]:m[9]])
			}
		}
		markers = append(markers, mk)
	}

	for _, m := range speakerMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		if containsOffset(markers, m[0]) {
			continue
		}
		markers = append(markers, marker{
			offset:  m[0],
			speaker: strings.TrimSpace(text[m[2]:m[3]]),
		})
	}

	// Two regex passes, so restore source order.
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].offset < markers[j-1].offset; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}

	return markers
}

func containsOffset(markers []marker, offset int) bool {
	for _, m := range markers {
		if m.offset == offset {
			return true
		}
	}
	return false
}

// lastMarkerIn returns the offset of the last marker in (low, high], or -1.
func lastMarkerIn(markers []marker, low, high int) int {
	best := -1
	for _, m := range markers {
		if m.offset > low && m.offset <= high {
			best = m.offset
		}
		if m.offset > high {
			break
		}
	}
	return best
}

// activeMarker returns the timestamp and speaker in effect at offset, i.e.
// from the last marker at or before it.
func activeMarker(markers []marker, offset int) (timestamp, speaker string) {
	for _, m := range markers {
		if m.offset > offset {
			break
		}
		if m.timestamp != "" {
			timestamp = m.timestamp
		}
		if m.speaker != "" {
			speaker = m.speaker
		}
	}
	return timestamp, speaker
}
