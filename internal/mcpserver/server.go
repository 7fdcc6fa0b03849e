// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes card lookup and traversal tools via stdio transport.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cardbox/internal/cardservice"
	"github.com/starford/cardbox/internal/graph"
	"github.com/starford/cardbox/internal/parser"
)

const guideURI = "cards://guide"

// Server wraps the MCP server with card tools.
type Server struct {
	mcp   *server.MCPServer
	cards *cardservice.Service
}

// New creates a new MCP server with all card tools registered.
func New(cards *cardservice.Service, version string) *Server {
	s := &Server{cards: cards}

	s.mcp = server.NewMCPServer(
		"cards",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_card",
		mcp.WithDescription("Read one card as YAML."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card ID (e.g. 7.2)")),
	), s.readCard)

	s.mcp.AddTool(mcp.NewTool("list_cards",
		mcp.WithDescription("List every card with its type, title and tags."),
	), s.listCards)

	s.mcp.AddTool(mcp.NewTool("find_cards",
		mcp.WithDescription("Find the cards carrying all of the given tags."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags")),
	), s.findCards)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all cards that link to the specified card."),
		mcp.WithString("id", mcp.Required(), mcp.Description("ID of the card to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("card_path",
		mcp.WithDescription("Shortest chain of cards between two cards over links, sequence pointers and the ID hierarchy."),
		mcp.WithString("start", mcp.Required(), mcp.Description("ID of the first card")),
		mcp.WithString("goal", mcp.Required(), mcp.Description("ID of the last card")),
	), s.cardPath)

	s.mcp.AddTool(mcp.NewTool("card_ancestry",
		mcp.WithDescription("Chain of hierarchical ancestors of a card, root first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card ID")),
	), s.cardAncestry)

	s.mcp.AddTool(mcp.NewTool("card_ego",
		mcp.WithDescription("All cards within a number of steps of a card."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card ID")),
		mcp.WithNumber("depth", mcp.DefaultNumber(1), mcp.Description("Number of steps (default 1)")),
	), s.cardEgo)

	s.mcp.AddTool(mcp.NewTool("card_sequence",
		mcp.WithDescription("Walk the sequence pointers from a card."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Card ID")),
		mcp.WithBoolean("backward", mcp.Description("Walk towards predecessors instead")),
	), s.cardSequence)

	s.mcp.AddTool(mcp.NewTool("get_card_guide",
		mcp.WithDescription("Returns the card format and relation guide. "+
			"Call this before interpreting card fields."),
	), s.getCardGuide)

	// Resource: card guide.
	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Card Guide",
			mcp.WithResourceDescription("Card format, ID hierarchy and relations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.cards.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	data, err := parser.Format(card)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listCards(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(cards))
	for i, c := range cards {
		lines[i] = strings.TrimSpace(cardservice.ListLine(c))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) findCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return mcp.NewToolResultError("at least one tag is required"), nil
	}
	ids, err := s.cards.Find(ctx, tags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultText("no cards found"), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.cards.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

// withGraph builds a fresh graph, checks that ids are cards and renders fn's
// result.
func (s *Server) withGraph(ctx context.Context, ids []string, fn func(*graph.Graph) string) (*mcp.CallToolResult, error) {
	g, err := s.cards.Graph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := g.Require(ids...); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fn(g)), nil
}

func (s *Server) cardPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	goal, err := req.RequireString("goal")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withGraph(ctx, []string{start, goal}, func(g *graph.Graph) string {
		return graph.FormatPath(g.ShortestPath(start, goal))
	})
}

func (s *Server) cardAncestry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withGraph(ctx, []string{id}, func(g *graph.Graph) string {
		return graph.FormatAncestry(g.Ancestry(id))
	})
}

func (s *Server) cardEgo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth := req.GetInt("depth", 1)
	return s.withGraph(ctx, []string{id}, func(g *graph.Graph) string {
		return graph.FormatEgo(g.Ego(id, depth))
	})
}

func (s *Server) cardSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	backward := req.GetBool("backward", false)
	return s.withGraph(ctx, []string{id}, func(g *graph.Graph) string {
		return graph.FormatSequence(g.SequenceWalk(id, backward), backward)
	})
}

func (s *Server) getCardGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardGuide), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     CardGuide,
		},
	}, nil
}
