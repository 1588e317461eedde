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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/newswire"
	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/dispatch"
	"github.com/poiesic/newswire/storage/badger"
)

// envConfig supplies flag defaults from the environment.
type envConfig struct {
	DBPath          string        `env:"NEWSWIRE_DB" envDefault:"./newswire-db"`
	RulesFile       string        `env:"NEWSWIRE_RULES"`
	EmbeddingHost   string        `env:"NEWSWIRE_EMBEDDING_HOST" envDefault:"http://localhost:11434/v1"`
	EmbeddingModel  string        `env:"NEWSWIRE_EMBEDDING_MODEL" envDefault:"embeddinggemma"`
	CacheSize       int           `env:"NEWSWIRE_CACHE_SIZE" envDefault:"1000"`
	RefreshInterval time.Duration `env:"NEWSWIRE_REFRESH_INTERVAL" envDefault:"60s"`
	EmbedTimeout    time.Duration `env:"NEWSWIRE_EMBED_TIMEOUT" envDefault:"30s"`
}

func main() {
	cfg, err := env.ParseAs[envConfig]()
	if err != nil {
		log.Fatal(err)
	}

	app := newApp(cfg)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg envConfig) *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
		Value:   cfg.DBPath,
	}

	return &cli.App{
		Name:   "newswire",
		Usage:  "Chat message monitor with keyword and semantic topic filtering",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the monitor, reading JSON-lines events from stdin",
				Action: runCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:    "rules",
						Aliases: []string{"r"},
						Usage:   "Path to YAML filter rules file",
						Value:   cfg.RulesFile,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: cfg.EmbeddingHost,
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: cfg.EmbeddingModel,
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Usage: "Embedding cache capacity",
						Value: cfg.CacheSize,
					},
					&cli.DurationFlag{
						Name:  "refresh-interval",
						Usage: "Active source snapshot refresh interval",
						Value: cfg.RefreshInterval,
					},
					&cli.DurationFlag{
						Name:  "embed-timeout",
						Usage: "Per-message filter pipeline timeout",
						Value: cfg.EmbedTimeout,
					},
				},
			},
			{
				Name:  "source",
				Usage: "Manage monitored sources",
				Subcommands: []*cli.Command{
					{
						Name:   "add",
						Usage:  "Register a chat id as a monitored source",
						Action: sourceAddCommand,
						Flags: []cli.Flag{
							dbFlag,
							&cli.Int64Flag{
								Name:     "chat-id",
								Usage:    "Platform chat identifier",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "title",
								Usage: "Display title for the source",
							},
							&cli.StringFlag{
								Name:  "username",
								Usage: "Public username of the source",
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "Source type (channel, group, private)",
								Value: "channel",
							},
						},
					},
					{
						Name:   "deactivate",
						Usage:  "Stop admitting messages from a source",
						Action: sourceSetActiveCommand(false),
						Flags: []cli.Flag{
							dbFlag,
							&cli.Int64Flag{
								Name:     "chat-id",
								Usage:    "Platform chat identifier",
								Required: true,
							},
						},
					},
					{
						Name:   "activate",
						Usage:  "Resume admitting messages from a source",
						Action: sourceSetActiveCommand(true),
						Flags: []cli.Flag{
							dbFlag,
							&cli.Int64Flag{
								Name:     "chat-id",
								Usage:    "Platform chat identifier",
								Required: true,
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List monitored sources",
						Action: sourceListCommand,
						Flags: []cli.Flag{
							dbFlag,
							&cli.BoolFlag{
								Name:  "all",
								Usage: "Include deactivated sources",
							},
						},
					},
				},
			},
		},
	}
}

// logForwarder is the no-op delivery collaborator: it logs what would be
// forwarded and reports success so tasks settle as sent.
type logForwarder struct {
	logger *slog.Logger
}

func (f *logForwarder) Enqueue(ctx context.Context, task *core.ForwardTask, msg *core.Message) error {
	f.logger.Info("forward",
		"task_id", task.Id,
		"chat_id", msg.ChatID,
		"message_id", msg.ExternalMessageID,
		"score", task.Score,
		"text", msg.Text,
	)
	return nil
}

func runCommand(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCacheSize(c.Int("cache-size")),
		ai.WithEmbedTimeout(c.Duration("embed-timeout")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []newswire.MonitorOption{
		newswire.WithAIConfig(aiConfig),
		newswire.WithRefreshInterval(c.Duration("refresh-interval")),
		newswire.WithForwarder(&logForwarder{logger: slog.Default()}),
	}
	if rulesPath := c.String("rules"); rulesPath != "" {
		opts = append(opts, newswire.WithRulesFile(rulesPath))
	}

	monitor, err := newswire.NewMonitor(c.String("db"), opts...)
	if err != nil {
		return fmt.Errorf("failed to open monitor: %w", err)
	}
	defer monitor.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	slog.Info("monitor running, reading events from stdin",
		"db", c.String("db"), "rules", c.String("rules"))

	if err := feedEvents(ctx, monitor, os.Stdin); err != nil {
		return err
	}
	return nil
}

// feedEvents reads one JSON event per line and hands each to the monitor.
// Malformed lines are logged and skipped. Returns when input ends or ctx is
// cancelled.
func feedEvents(ctx context.Context, monitor *newswire.Monitor, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev dispatch.RawEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			slog.Warn("skipping malformed event line", "err", err)
			continue
		}
		monitor.HandleEvent(ctx, &ev)
	}
	return scanner.Err()
}

// openSources opens the storage backend and source repository for the admin
// commands. The returned cleanup closes both.
func openSources(dbPath string) (*badger.SourceRepository, func(), error) {
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	sources, err := badger.NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to create source repository: %w", err)
	}

	cleanup := func() {
		sources.Close()
		backend.Close()
	}
	return sources, cleanup, nil
}

func sourceAddCommand(c *cli.Context) error {
	sourceType := core.ParseSourceType(c.String("type"))

	sources, cleanup, err := openSources(c.String("db"))
	if err != nil {
		return err
	}
	defer cleanup()

	source, created, err := sources.GetOrCreate(context.Background(), c.Int64("chat-id"), core.SourceHint{
		Type:     sourceType,
		Title:    c.String("title"),
		Username: c.String("username"),
	})
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	if created {
		fmt.Printf("Added source %d (chat %d, %s)\n", source.Id, source.ChatID, source.Type)
	} else {
		fmt.Printf("Source for chat %d already exists (id %d)\n", source.ChatID, source.Id)
	}
	return nil
}

func sourceSetActiveCommand(active bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		sources, cleanup, err := openSources(c.String("db"))
		if err != nil {
			return err
		}
		defer cleanup()

		chatID := c.Int64("chat-id")
		if err := sources.SetActive(context.Background(), chatID, active); err != nil {
			return fmt.Errorf("failed to update source %d: %w", chatID, err)
		}

		if active {
			fmt.Printf("Activated source for chat %d\n", chatID)
		} else {
			fmt.Printf("Deactivated source for chat %d\n", chatID)
		}
		return nil
	}
}

func sourceListCommand(c *cli.Context) error {
	sources, cleanup, err := openSources(c.String("db"))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	var list []*core.Source
	if c.Bool("all") {
		list, err = sources.All(ctx)
	} else {
		list, err = sources.ListActive(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No sources found")
		return nil
	}

	for _, s := range list {
		state := "active"
		if !s.IsActive {
			state = "inactive"
		}
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", s.ChatID, s.Type, state, s.Title, s.Username)
	}
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
