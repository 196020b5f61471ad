package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the types persisted in BadgerDB.
// Graph entities (Concept, Relationship, Quote) live in Neo4j and are
// never serialized here.

// IDMUS serializes an ID as a varint.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

var (
	// Float32SliceMUS serializes embedding vectors.
	Float32SliceMUS = ord.NewSliceSer[float32](varint.Float32)

	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

// ChunkMUS serializes a Chunk.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += ord.String.Marshal(c.WorkspaceID, bs[n:])
	n += ord.String.Marshal(c.EpisodeID, bs[n:])
	n += ord.String.Marshal(c.SourcePath, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += varint.Int.Marshal(c.StartOffset, bs[n:])
	n += varint.Int.Marshal(c.EndOffset, bs[n:])
	n += ord.String.Marshal(c.Speaker, bs[n:])
	n += ord.String.Marshal(c.Timestamp, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	if c.WorkspaceID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.EpisodeID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.SourcePath, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.StartOffset, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.EndOffset, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Speaker, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Timestamp, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += ord.String.Size(c.WorkspaceID)
	size += ord.String.Size(c.EpisodeID)
	size += ord.String.Size(c.SourcePath)
	size += varint.Int.Size(c.Index)
	size += varint.Int.Size(c.StartOffset)
	size += varint.Int.Size(c.EndOffset)
	size += ord.String.Size(c.Speaker)
	size += ord.String.Size(c.Timestamp)
	size += ord.String.Size(c.Text)
	return size
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// TurnMUS serializes a session Turn.
var TurnMUS = turnMUS{}

type turnMUS struct{}

func (turnMUS) Marshal(t Turn, bs []byte) (n int) {
	n = ord.String.Marshal(t.WorkspaceID, bs)
	n += ord.String.Marshal(t.SessionID, bs[n:])
	n += varint.Uint64.Marshal(t.Seq, bs[n:])
	n += varint.Int.Marshal(int(t.Role), bs[n:])
	n += ord.String.Marshal(t.Content, bs[n:])
	n += metadataMUS.Marshal(t.Metadata, bs[n:])
	n += raw.TimeUnixMicro.Marshal(t.CreatedAt, bs[n:])
	return n
}

func (turnMUS) Unmarshal(bs []byte) (t Turn, n int, err error) {
	var n1 int
	t.WorkspaceID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	if t.SessionID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if t.Seq, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var role int
	if role, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	t.Role = TurnRole(role)
	n += n1
	if t.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if t.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var created time.Time
	if created, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return
	}
	t.CreatedAt = created
	n += n1
	return
}

func (turnMUS) Size(t Turn) (size int) {
	size = ord.String.Size(t.WorkspaceID)
	size += ord.String.Size(t.SessionID)
	size += varint.Uint64.Size(t.Seq)
	size += varint.Int.Size(int(t.Role))
	size += ord.String.Size(t.Content)
	size += metadataMUS.Size(t.Metadata)
	size += raw.TimeUnixMicro.Size(t.CreatedAt)
	return size
}

func (s turnMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
