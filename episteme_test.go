package episteme

import (
	"context"
	"testing"

	"github.com/poiesic/episteme/graph"
	"github.com/stretchr/testify/assert"
)

// Open against a live Neo4j is covered by the ingest and query package
// tests through their store fakes; here we only check the offline
// validation paths.
func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty data dir fails", func(t *testing.T) {
		db, err := Open(ctx, Config{
			Graph: graph.Config{URI: "neo4j://localhost:7687"},
		})
		assert.ErrorIs(t, err, ErrDataDirRequired)
		assert.Nil(t, db)
	})

	t.Run("missing graph URI fails before touching the data dir", func(t *testing.T) {
		db, err := Open(ctx, Config{DataDir: t.TempDir()})
		assert.ErrorIs(t, err, graph.ErrURIRequired)
		assert.Nil(t, db)
	})
}
