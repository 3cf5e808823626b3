package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/interp"
	"github.com/starford/raido/internal/journal"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/surfaceservice"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// replay feeds a recorded transcript file through a fresh interpreter and
// prints the final snapshot with resolved properties.
func replay(ctx context.Context, cmd *cli.Command) error {
	cat, err := catalog.LoadFile(cmd.String("catalog"))
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.String("transcript"))
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	opts := []interp.Option{interp.WithLogger(logger)}
	if cmd.Bool("strict") {
		opts = append(opts, interp.WithStrictUnknown())
	}
	in := interp.New(cat, opts...)

	if err := in.Run(ctx, protocol.NewDecoder(f)); err != nil {
		// The last-known-good snapshot below is still printed: in-flight
		// state survives stream failure.
		logger.Warn("stream ended with error", slog.String("error", err.Error()))
	}

	snap := in.Snapshot()
	resolved := make(map[string]map[string]any, len(snap.Layout.Nodes))
	for id, n := range snap.Layout.Nodes {
		resolved[id] = in.Resolver().ProcessNode(n, nil)
	}
	return printJSON(map[string]any{
		"snapshot": snap,
		"resolved": resolved,
	})
}

// mcpServe runs the MCP producer bridge on stdio.
func mcpServe(ctx context.Context, cmd *cli.Command) error {
	cat, err := catalog.LoadFile(cmd.String("catalog"))
	if err != nil {
		return err
	}
	db, err := journal.Open(cmd.String("journal"))
	if err != nil {
		return err
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := surfaceservice.NewService(cat, db, nil, logger)
	return mcpserver.New(svc).ServeStdio()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Streaming server-driven UI interpreter: consumes surface protocol streams and serves resolved layout/state snapshots to renderers",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the dev harness HTTP server (ingest, snapshots, SSE)",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "config",
						Aliases:     []string{"c"},
						Usage:       "Path to config file",
						DefaultText: "config/config.yaml",
						Value:       "config/config.yaml",
						Sources:     cli.EnvVars("APP_CONFIG_FILE"),
					},
				},
			},
			{
				Name:   "replay",
				Usage:  "Replay a recorded stream transcript and print the resolved snapshot",
				Action: replay,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "catalog",
						Usage:    "Path to the catalog document",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "transcript",
						Aliases:  []string{"t"},
						Usage:    "Path to the transcript file (one stream message per line)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Fail on malformed lines and unknown message kinds",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP producer bridge on stdio",
				Action: mcpServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "catalog",
						Usage:    "Path to the catalog document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "journal",
						Usage: "Path to the session journal database",
						Value: "./raido.db",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
