// Package commands defines the cards and traverse command trees.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/cardbox/internal"
	pkgconfig "github.com/starford/cardbox/pkg/config"
)

// Version is reported by --version and the MCP server.
const Version = "0.1.0"

// runner carries the configuration resolved by the root Before hook to the
// command actions.
type runner struct {
	opts []internal.Option
	cfg  *internal.Config
}

func newRunner(opts []internal.Option) *runner {
	return &runner{opts: opts}
}

// rootFlags are shared by both command trees.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "$XDG_CONFIG_HOME/cards/config.yaml",
			Value:       defaultConfigPath(),
			Sources:     cli.EnvVars("CARDS_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Card directory, overrides store.path",
			Sources: cli.EnvVars("CARDS_ROOT"),
		},
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cards", "config.yaml")
}

// before loads the configuration file, if any, over the defaults.
func (r *runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return ctx, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Store.Path = root
	}
	r.cfg = cfg
	return ctx, nil
}

// withApp opens the card store for the duration of fn.
func (r *runner) withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if r.cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		opts := append([]internal.Option{internal.WithConfig(r.cfg)}, r.opts...)
		app, err := internal.Open(opts...)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

// arg returns the i-th positional argument or an error naming it.
func arg(cmd *cli.Command, i int, name string) (string, error) {
	if cmd.Args().Len() <= i {
		return "", fmt.Errorf("missing argument <%s>", name)
	}
	return cmd.Args().Get(i), nil
}

func printLine(cmd *cli.Command, a ...any) {
	fmt.Fprintln(cmd.Root().Writer, a...)
}
