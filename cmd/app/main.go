package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/skinlens/internal"
	pkgconfig "github.com/starford/skinlens/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := cmd.String("skin"); p != "" {
		cfg.Skin.Path = p
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// withRuntime loads the skin with logs on stderr and runs fn against it.
func withRuntime(ctx context.Context, cmd *cli.Command, fn func(*internal.Runtime) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.Load(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	folder, name := cmd.Args().Get(0), cmd.Args().Get(1)
	if folder == "" || name == "" {
		return fmt.Errorf("usage: resolve <folder> <name>")
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		d, err := rt.Service.Include(ctx, folder, name, true)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, d.Resolved)
		return nil
	})
}

func constants(ctx context.Context, cmd *cli.Command) error {
	folder := cmd.Args().First()
	if folder == "" {
		return fmt.Errorf("usage: constants <folder>")
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		names, err := rt.Service.Constants(ctx, folder)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			fmt.Fprintln(os.Stdout, strings.Join(names, "\n"))
		}
		return nil
	})
}

func includes(ctx context.Context, cmd *cli.Command) error {
	folder := cmd.Args().First()
	if folder == "" {
		return fmt.Errorf("usage: includes <folder>")
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		recs, err := rt.Service.Includes(ctx, folder, cmd.String("kind"), cmd.String("query"), 0)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			file := rec.File
			if rel, err := rt.Store.Rel(rec.File); err == nil {
				file = rel
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\t%s:%d\n", rec.Kind, rec.Name, file, rec.Line)
		}
		return nil
	})
}

func main() {
	cmd := &cli.Command{
		Name:    "skinlens",
		Usage:   "Include resolution, lookup and live reload for Kodi skins",
		Version: version,
		Action:  serve,
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
				Name:    "skin",
				Aliases: []string{"s"},
				Usage:   "Skin directory, overrides skin.path",
				Sources: cli.EnvVars("SKIN_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and watch the skin for changes",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "resolve",
				Usage:     "Print an include with nested references inlined",
				ArgsUsage: "<folder> <name>",
				Action:    resolve,
			},
			{
				Name:      "constants",
				Usage:     "List the constant names of a folder",
				ArgsUsage: "<folder>",
				Action:    constants,
			},
			{
				Name:      "includes",
				Usage:     "List the active records of a folder",
				ArgsUsage: "<folder>",
				Action:    includes,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "include, variable, constant or expression"},
					&cli.StringFlag{Name: "query", Usage: "Case-insensitive name substring"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
