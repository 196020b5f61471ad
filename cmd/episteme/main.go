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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/episteme"
	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/ingest"
	"github.com/poiesic/episteme/query"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "episteme",
		Usage: "Knowledge extraction and hybrid retrieval over transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Extract knowledge from transcript files into a workspace",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append(connectionFlags(),
					&cli.IntFlag{
						Name:  "token-budget",
						Usage: "Model token budget per minute (0 disables throttling)",
						Value: 80000,
					},
					&cli.IntFlag{
						Name:  "min-co-occurrence",
						Usage: "Minimum shared chunks for a cross-episode link",
						Value: 2,
					},
					&cli.Float64Flag{
						Name:  "min-link-confidence",
						Usage: "Minimum mean confidence for a cross-episode link",
						Value: 0.5,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from a workspace's knowledge",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Session ID for conversational memory",
					},
					&cli.BoolFlag{
						Name:  "new-session",
						Usage: "Start a fresh session and print its ID",
					},
					&cli.StringFlag{
						Name:  "style",
						Usage: "Answer style (e.g. \"concise\", \"detailed\")",
					},
					&cli.StringFlag{
						Name:  "tone",
						Usage: "Answer tone (e.g. \"warm\", \"neutral\")",
					},
				),
			},
			{
				Name:  "workspace",
				Usage: "Manage workspaces",
				Subcommands: []*cli.Command{
					{
						Name:   "delete",
						Usage:  "Delete a workspace's graph and vectors",
						Action: workspaceDeleteCommand,
						Flags:  connectionFlags(),
					},
				},
			},
			{
				Name:  "session",
				Usage: "Manage conversation sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "delete",
						Usage:  "Delete a session's stored turns",
						Action: sessionDeleteCommand,
						Flags: append(connectionFlags(),
							&cli.StringFlag{
								Name:     "session",
								Aliases:  []string{"s"},
								Usage:    "Session ID to delete",
								Required: true,
							},
						),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// connectionFlags are shared by every command that opens the Database.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Path to local data directory (vectors, sessions)",
			Value:   "episteme-data",
		},
		&cli.StringFlag{
			Name:     "workspace",
			Aliases:  []string{"w"},
			Usage:    "Workspace ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "neo4j-uri",
			Usage: "Neo4j connection URI",
			Value: "neo4j://localhost:7687",
		},
		&cli.StringFlag{
			Name:  "neo4j-user",
			Usage: "Neo4j username",
			Value: "neo4j",
		},
		&cli.StringFlag{
			Name:    "neo4j-password",
			Usage:   "Neo4j password",
			EnvVars: []string{"EPISTEME_NEO4J_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "neo4j-database",
			Usage: "Neo4j database name",
			Value: "neo4j",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (defaults to --host)",
		},
		&cli.StringFlag{
			Name:  "chat-host",
			Usage: "Chat service host URL (defaults to --host)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for extraction and answers",
			Value: "qwen2.5:3b",
		},
	}
}

func openDatabase(ctx context.Context, c *cli.Context) (*episteme.Database, error) {
	aiOpts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	}
	if host := c.String("embedding-host"); host != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingHost(host))
	}
	if host := c.String("chat-host"); host != "" {
		aiOpts = append(aiOpts, ai.WithChatHost(host))
	}

	db, err := episteme.Open(ctx, episteme.Config{
		DataDir: c.String("data"),
		Graph: graph.Config{
			URI:      c.String("neo4j-uri"),
			Username: c.String("neo4j-user"),
			Password: c.String("neo4j-password"),
			Database: c.String("neo4j-database"),
		},
		AI: ai.NewConfig(aiOpts...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("at least one transcript file is required")
	}

	transcripts := make([]ingest.Transcript, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read transcript %s: %w", path, err)
		}
		base := filepath.Base(path)
		transcripts = append(transcripts, ingest.Transcript{
			EpisodeID:  strings.TrimSuffix(base, filepath.Ext(base)),
			SourcePath: path,
			Content:    string(content),
		})
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	pipeline, err := db.NewIngestionPipeline(
		ingest.WithTokenBudget(c.Int("token-budget")),
		ingest.WithLinkerConfig(graph.LinkerConfig{
			MinCoOccurrence: c.Int("min-co-occurrence"),
			MinConfidence:   c.Float64("min-link-confidence"),
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	workspaceID := c.String("workspace")
	fmt.Fprintf(os.Stderr, "Workspace: %s\n", workspaceID)
	fmt.Fprintf(os.Stderr, "Transcripts: %d\n", len(transcripts))
	fmt.Fprintln(os.Stderr)

	summary, err := pipeline.Run(ctx, workspaceID, transcripts, func(p ingest.Progress) {
		fmt.Fprintf(os.Stderr, "  %s: %d/%d\n", p.Stage, p.Done, p.Total)
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintln(os.Stderr)
	fmt.Printf("Chunks:              %d\n", summary.Chunks)
	fmt.Printf("Concepts:            %d\n", summary.Concepts)
	fmt.Printf("Relationships:       %d\n", summary.Relationships)
	fmt.Printf("Quotes:              %d\n", summary.Quotes)
	fmt.Printf("Vectors indexed:     %d\n", summary.VectorsIndexed)
	fmt.Printf("Cross-episode links: %d\n", summary.CrossEpisodeLinks)
	if summary.FailedBatches > 0 {
		fmt.Printf("Failed batches:      %d (re-run ingest to retry)\n", summary.FailedBatches)
	}

	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	sessionID := c.String("session")
	if c.Bool("new-session") {
		if sessionID != "" {
			return fmt.Errorf("--session and --new-session are mutually exclusive")
		}
		sessionID = uuid.NewString()
		fmt.Fprintf(os.Stderr, "Session: %s\n", sessionID)
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	engine, err := db.NewQueryEngine()
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}

	req := query.Request{
		WorkspaceID: c.String("workspace"),
		Question:    question,
		SessionID:   sessionID,
		Style:       c.String("style"),
		Tone:        c.String("tone"),
	}

	answer, err := engine.AskStream(ctx, req, func(ctx context.Context, fragment []byte) error {
		fmt.Print(string(fragment))
		return nil
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Println()

	if len(answer.Sources) > 0 {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Sources:")
		for i, src := range answer.Sources {
			label := src.EpisodeID
			if src.Speaker != "" {
				label = src.Speaker + ", " + label
			}
			fmt.Fprintf(os.Stderr, "  [%d] %s (%s): %s\n", i+1, label, src.Kind, src.Snippet)
		}
	}
	if answer.Degraded {
		fmt.Fprintln(os.Stderr, "Note: partial retrieval, some context was unavailable")
	}

	return nil
}

func workspaceDeleteCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	workspaceID := c.String("workspace")
	if err := db.DeleteWorkspace(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	fmt.Printf("Deleted workspace %s\n", workspaceID)
	return nil
}

func sessionDeleteCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	workspaceID := c.String("workspace")
	sessionID := c.String("session")
	if err := db.SessionStore().Delete(ctx, workspaceID, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("Deleted session %s in workspace %s\n", sessionID, workspaceID)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
