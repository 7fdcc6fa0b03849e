package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/starford/cardbox/internal"
	"github.com/starford/cardbox/internal/cardservice"
	"github.com/starford/cardbox/internal/mcpserver"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/parser"
)

// NewCardsCommand returns the cards command tree. opts are applied after the
// loaded configuration when the store is opened.
func NewCardsCommand(opts ...internal.Option) *cli.Command {
	r := newRunner(opts)
	return &cli.Command{
		Name:    "cards",
		Usage:   "Numbered knowledge cards stored as YAML files",
		Version: Version,
		Flags:   rootFlags(),
		Before:  r.before,
		Commands: []*cli.Command{
			{
				Name:      "genid",
				Usage:     "Print the next free card ID",
				ArgsUsage: "[parent]",
				Action:    r.withApp(genID),
			},
			{
				Name:      "register",
				Usage:     "Create a card",
				ArgsUsage: "[id]",
				Flags:     registerFlags(),
				Action:    r.withApp(register),
			},
			{
				Name:      "update",
				Usage:     "Change fields of a card",
				ArgsUsage: "<id>",
				Flags:     updateFlags(),
				Action:    r.withApp(update),
			},
			{
				Name:      "delete",
				Usage:     "Delete a card after confirmation",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip the confirmation"},
				},
				Action: r.withApp(deleteCard),
			},
			{
				Name:      "show",
				Usage:     "Print a card",
				ArgsUsage: "<id>",
				Action:    r.withApp(show),
			},
			{
				Name:   "list",
				Usage:  "List all cards",
				Action: r.withApp(list),
			},
			{
				Name:  "find",
				Usage: "List the cards carrying every given tag",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"g"}, Usage: "Tag to match, repeatable"},
				},
				Action: r.withApp(find),
			},
			{
				Name:      "link",
				Usage:     "Link two cards both ways",
				ArgsUsage: "<a> <b>",
				Action:    r.withApp(link),
			},
			{
				Name:      "unlink",
				Usage:     "Remove the link between two cards",
				ArgsUsage: "<a> <b>",
				Action:    r.withApp(unlink),
			},
			{
				Name:      "sequence",
				Usage:     "Make b the card that follows a",
				ArgsUsage: "<a> <b>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Replace an existing successor"},
				},
				Action: r.withApp(sequence),
			},
			{
				Name:      "backlinks",
				Usage:     "List the cards linking to a card",
				ArgsUsage: "<id>",
				Action:    r.withApp(backlinks),
			},
			{
				Name:  "index",
				Usage: "Print the path of the ID to title index",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rebuild", Usage: "Rebuild the index from the card files first"},
				},
				Action: r.withApp(index),
			},
			{
				Name:  "guide",
				Usage: "Print the card format guide",
				Action: func(_ context.Context, cmd *cli.Command) error {
					_, err := io.WriteString(cmd.Root().Writer, mcpserver.CardGuide)
					return err
				},
			},
			{
				Name:   "watch",
				Usage:  "Keep the catalog in sync with hand edits until interrupted",
				Action: r.withApp(watch),
			},
			{
				Name:  "mcp",
				Usage: "Serve the card tools over MCP on stdin/stdout",
				Action: r.withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
					return mcpserver.New(app.Cards, Version).ServeStdio()
				}),
			},
		},
	}
}

func genID(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	id, err := app.Cards.NextID(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	printLine(cmd, id)
	return nil
}

func registerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"y"}, Value: string(models.TypeIdea), Usage: "idea or literature"},
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Card title"},
		&cli.StringFlag{Name: "summary", Aliases: []string{"u"}, Usage: "One-line summary"},
		&cli.StringSliceFlag{Name: "tag", Aliases: []string{"g"}, Usage: "Tag, repeatable"},
		&cli.StringSliceFlag{Name: "link", Aliases: []string{"l"}, Usage: "Card to link, repeatable"},
		&cli.StringFlag{Name: "sequence", Aliases: []string{"s"}, Usage: "Card that follows this one"},
		&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Allocate a child ID of this card"},
		&cli.StringFlag{Name: "context", Usage: "Where the idea came from"},
		&cli.StringFlag{Name: "next", Aliases: []string{"n"}, Usage: "What to do with it"},
		&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Card body; opens the editor when empty"},
	}
}

func register(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	body := cmd.String("body")
	if strings.TrimSpace(body) == "" {
		edited, err := app.Edit(ctx, "")
		if err != nil {
			return err
		}
		body = edited
	}

	card, err := app.Cards.Register(ctx, cardservice.Registration{
		ID:       cmd.Args().First(),
		Parent:   cmd.String("parent"),
		Type:     models.CardType(cmd.String("type")),
		Title:    cmd.String("title"),
		Summary:  cmd.String("summary"),
		Tags:     cmd.StringSlice("tag"),
		Links:    cmd.StringSlice("link"),
		Sequence: cmd.String("sequence"),
		Context:  cmd.String("context"),
		Next:     cmd.String("next"),
		Body:     body,
	})
	if err != nil {
		return err
	}
	printLine(cmd, card.ID)
	return nil
}

func updateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
		&cli.StringFlag{Name: "summary", Aliases: []string{"u"}},
		&cli.StringFlag{Name: "type", Aliases: []string{"y"}},
		&cli.StringFlag{Name: "context"},
		&cli.StringFlag{Name: "next", Aliases: []string{"n"}},
		&cli.StringFlag{Name: "body", Aliases: []string{"b"}},
		&cli.BoolFlag{Name: "edit", Aliases: []string{"e"}, Usage: "Edit the body in the editor"},
		&cli.StringFlag{Name: "sequence", Aliases: []string{"s"}, Usage: "Next card; empty clears it"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Replace an existing successor"},
		&cli.StringSliceFlag{Name: "add-tag"},
		&cli.StringSliceFlag{Name: "remove-tag"},
		&cli.StringSliceFlag{Name: "add-link"},
		&cli.StringSliceFlag{Name: "remove-link"},
	}
}

func update(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	id, err := arg(cmd, 0, "id")
	if err != nil {
		return err
	}

	set := func(name string) *string {
		if !cmd.IsSet(name) {
			return nil
		}
		v := cmd.String(name)
		return &v
	}

	ch := cardservice.Changes{
		Title:       set("title"),
		Summary:     set("summary"),
		Context:     set("context"),
		Next:        set("next"),
		Body:        set("body"),
		Sequence:    set("sequence"),
		Force:       cmd.Bool("force"),
		AddTags:     cmd.StringSlice("add-tag"),
		RemoveTags:  cmd.StringSlice("remove-tag"),
		AddLinks:    cmd.StringSlice("add-link"),
		RemoveLinks: cmd.StringSlice("remove-link"),
	}
	if cmd.IsSet("type") {
		t, err := models.ParseCardType(cmd.String("type"))
		if err != nil {
			return err
		}
		ch.Type = &t
	}
	if cmd.Bool("edit") {
		card, err := app.Cards.Get(ctx, id)
		if err != nil {
			return err
		}
		body, err := app.Edit(ctx, card.Body)
		if err != nil {
			return err
		}
		ch.Body = &body
	}

	_, changed, err := app.Cards.Update(ctx, id, ch)
	if err != nil {
		return err
	}
	if changed {
		printLine(cmd, "Updated", id)
	} else {
		printLine(cmd, "No changes applied")
	}
	return nil
}

func deleteCard(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	id, err := arg(cmd, 0, "id")
	if err != nil {
		return err
	}
	if _, err := app.Cards.Get(ctx, id); err != nil {
		return err
	}

	if !cmd.Bool("force") {
		ok, err := confirm(cmd, fmt.Sprintf("Delete card %s?", id))
		if err != nil {
			return err
		}
		if !ok {
			printLine(cmd, "Aborted")
			return nil
		}
	}

	if err := app.Cards.Delete(ctx, id); err != nil {
		return err
	}
	printLine(cmd, "Deleted card", id)
	return nil
}

// confirm asks a yes/no question, falling back to a line-based prompt when
// stdin is not a terminal.
func confirm(cmd *cli.Command, title string) (bool, error) {
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)

	in := cmd.Root().Reader
	if f, isFile := in.(*os.File); isFile && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		if err := field.Run(); err != nil {
			return false, err
		}
		return ok, nil
	}
	if err := field.RunAccessible(cmd.Root().Writer, in); err != nil {
		return false, err
	}
	return ok, nil
}

func show(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	id, err := arg(cmd, 0, "id")
	if err != nil {
		return err
	}
	card, err := app.Cards.Get(ctx, id)
	if err != nil {
		return err
	}
	data, err := parser.Format(card)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(data)
	return err
}

func list(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	cards, err := app.Cards.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range cards {
		printLine(cmd, cardservice.ListLine(c))
	}
	return nil
}

func find(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	tags := cmd.StringSlice("tag")
	if len(tags) == 0 {
		return fmt.Errorf("at least one --tag is required")
	}
	ids, err := app.Cards.Find(ctx, tags)
	if err != nil {
		return err
	}
	for _, id := range ids {
		card, err := app.Cards.Get(ctx, id)
		if err != nil {
			return err
		}
		printLine(cmd, cardservice.ListLine(card))
	}
	return nil
}

func pair(cmd *cli.Command) (string, string, error) {
	a, err := arg(cmd, 0, "a")
	if err != nil {
		return "", "", err
	}
	b, err := arg(cmd, 1, "b")
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func link(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	a, b, err := pair(cmd)
	if err != nil {
		return err
	}
	if err := app.Cards.Link(ctx, a, b); err != nil {
		return err
	}
	printLine(cmd, fmt.Sprintf("Linked %s ↔ %s", a, b))
	return nil
}

func unlink(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	a, b, err := pair(cmd)
	if err != nil {
		return err
	}
	if err := app.Cards.Unlink(ctx, a, b); err != nil {
		return err
	}
	printLine(cmd, fmt.Sprintf("Unlinked %s ↔ %s", a, b))
	return nil
}

func sequence(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	a, b, err := pair(cmd)
	if err != nil {
		return err
	}
	if err := app.Cards.Sequence(ctx, a, b, cmd.Bool("force")); err != nil {
		return err
	}
	printLine(cmd, fmt.Sprintf("Sequenced %s → %s", a, b))
	return nil
}

func backlinks(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	id, err := arg(cmd, 0, "id")
	if err != nil {
		return err
	}
	ids, err := app.Cards.Backlinks(ctx, id)
	if err != nil {
		return err
	}
	for _, b := range ids {
		printLine(cmd, b)
	}
	return nil
}

func index(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Bool("rebuild") {
		if _, err := app.Cards.Reindex(ctx); err != nil {
			return err
		}
	}
	printLine(cmd, app.Config.IndexPath())
	return nil
}

func watch(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	printLine(cmd, "Watching", app.Files.Root())
	return app.Watch(ctx, func(kind, id string) {
		printLine(cmd, kind, id)
	})
}
