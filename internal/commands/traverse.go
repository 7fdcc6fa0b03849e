package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/starford/cardbox/internal"
	"github.com/starford/cardbox/internal/graph"
)

// NewTraverseCommand returns the traverse command tree. Every action builds
// a fresh graph from the cards on disk.
func NewTraverseCommand(opts ...internal.Option) *cli.Command {
	r := newRunner(opts)
	return &cli.Command{
		Name:    "traverse",
		Usage:   "Walk the links, sequences and hierarchy between cards",
		Version: Version,
		Flags:   rootFlags(),
		Before:  r.before,
		Commands: []*cli.Command{
			{
				Name:      "path",
				Usage:     "Print a shortest chain of cards from a to b",
				ArgsUsage: "<a> <b>",
				Action: r.withGraph(2, func(cmd *cli.Command, g *graph.Graph, ids []string) string {
					return graph.FormatPath(g.ShortestPath(ids[0], ids[1]))
				}),
			},
			{
				Name:      "ancestry",
				Usage:     "Print the hierarchical ancestors of a card, root first",
				ArgsUsage: "<id>",
				Action: r.withGraph(1, func(cmd *cli.Command, g *graph.Graph, ids []string) string {
					return graph.FormatAncestry(g.Ancestry(ids[0]))
				}),
			},
			{
				Name:      "ego",
				Usage:     "Print every card within --depth steps of a card",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 1, Usage: "Number of steps"},
				},
				Action: r.withGraph(1, func(cmd *cli.Command, g *graph.Graph, ids []string) string {
					return graph.FormatEgo(g.Ego(ids[0], int(cmd.Int("depth"))))
				}),
			},
			{
				Name:      "sequence",
				Usage:     "Follow the sequence pointers from a card",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "backward", Aliases: []string{"b"}, Usage: "Walk towards predecessors"},
				},
				Action: r.withGraph(1, func(cmd *cli.Command, g *graph.Graph, ids []string) string {
					backward := cmd.Bool("backward")
					return graph.FormatSequence(g.SequenceWalk(ids[0], backward), backward)
				}),
			},
		},
	}
}

// withGraph reads n card IDs from the arguments, fails when one is not a
// card and prints what render returns.
func (r *runner) withGraph(n int, render func(cmd *cli.Command, g *graph.Graph, ids []string) string) cli.ActionFunc {
	return r.withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
		names := []string{"a", "b"}
		if n == 1 {
			names = []string{"id"}
		}
		ids := make([]string, n)
		for i := range ids {
			id, err := arg(cmd, i, names[i])
			if err != nil {
				return err
			}
			ids[i] = id
		}

		g, err := app.Cards.Graph(ctx)
		if err != nil {
			return err
		}
		if err := g.Require(ids...); err != nil {
			return err
		}
		printLine(cmd, render(cmd, g, ids))
		return nil
	})
}
