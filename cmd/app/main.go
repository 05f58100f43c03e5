package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/agenda/internal"
	"github.com/starford/agenda/internal/hours"
	"github.com/starford/agenda/internal/models"
	pkgconfig "github.com/starford/agenda/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func phraseArg(cmd *cli.Command) (string, error) {
	phrase := strings.Join(cmd.Args().Slice(), " ")
	if phrase == "" {
		return "", fmt.Errorf("a phrase is required, e.g. %q", "next Thu")
	}
	return phrase, nil
}

func resolve(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	phrase, err := phraseArg(cmd)
	if err != nil {
		return err
	}
	rng, err := hours.ResolveRange(phrase, time.Now().In(cfg.Schedule.Location()))
	if err != nil {
		return err
	}
	fmt.Println(rng)
	return nil
}

func slots(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	phrase, err := phraseArg(cmd)
	if err != nil {
		return err
	}
	av, err := internal.Availability(ctx, phrase, models.PersonID(cmd.String("person")), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if len(av.Slots) == 0 {
		fmt.Printf("no free slots in %s\n", av.Range)
		return nil
	}
	for _, s := range av.Slots {
		fmt.Println(s)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "agenda",
		Usage:  "Schedule availability engine: resolve relative dates, find free slots, book events",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (built-in defaults when missing)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with the import watcher and export job",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "resolve",
				Usage:     "Print the working-hours range a phrase resolves to",
				ArgsUsage: "<phrase>",
				Action:    resolve,
			},
			{
				Name:      "slots",
				Usage:     "Print free slots inside the range a phrase resolves to",
				ArgsUsage: "<phrase>",
				Action:    slots,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "person",
						Aliases: []string{"p"},
						Usage:   "Only consider this person's bookings",
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
