package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notepub/internal"
	"github.com/starford/notepub/internal/slug"
	pkgconfig "github.com/starford/notepub/pkg/config"
)

// loadConfig reads the config file, applies --source/--output overrides and
// validates the result.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("source"); v != "" {
		cfg.Source.Path = v
	}
	if v := cmd.String("output"); v != "" {
		cfg.Output.Path = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Build(ctx, opts...)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return nil
}

func watchCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, opts...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func push(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	_, err = internal.Push(ctx, cmd.String("dest"), opts...)
	return err
}

func slugCmd(_ context.Context, cmd *cli.Command) error {
	if cmd.String("title") == "" || cmd.String("path") == "" {
		return fmt.Errorf("--title and --path are required")
	}
	fmt.Println(slug.Generate(cmd.String("title"), cmd.String("path"), cmd.String("created")))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "notepub",
		Usage: "Publish a tree of Markdown notes as cross-linked HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source notes directory (overrides source.path)",
				Sources: cli.EnvVars("NOTEPUB_SOURCE"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (overrides output.path)",
				Sources: cli.EnvVars("NOTEPUB_OUTPUT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Publish every completed note once",
				Action: build,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the run report as JSON"},
				},
			},
			{
				Name:   "watch",
				Usage:  "Publish, then republish whenever the source tree changes",
				Action: watchCmd,
			},
			{
				Name:   "serve",
				Usage:  "Publish, watch and serve a preview with a JSON API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve published documents to MCP clients over stdio",
				Action: mcp,
			},
			{
				Name:   "push",
				Usage:  "Mirror the output directory to a destination directory",
				Action: push,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dest", Usage: "Destination directory (overrides push.path)"},
				},
			},
			{
				Name:   "slug",
				Usage:  "Print the slug for a title, relative path and created value",
				Action: slugCmd,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Frontmatter title"},
					&cli.StringFlag{Name: "path", Usage: "Path relative to the source root"},
					&cli.StringFlag{Name: "created", Usage: "Frontmatter created value"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
