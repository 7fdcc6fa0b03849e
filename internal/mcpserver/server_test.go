package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/cardbox/internal/cardservice"
	"github.com/starford/cardbox/internal/models"
	"github.com/starford/cardbox/internal/parser"
	"github.com/starford/cardbox/internal/testutil"
)

// testServer returns a server over cards 1..3 and 2.1, where 2 links to 1,
// 1 is followed by 3 and 2.1 is a child of 2.
func testServer(t *testing.T) *Server {
	t.Helper()
	env := testutil.TestEnv(t)
	svc := cardservice.NewService(env.Store, env.Alloc, testutil.TestDB(t), nil)

	ctx := context.Background()
	regs := []cardservice.Registration{
		{Title: "First", Tags: []string{"go"}},
		{Title: "Second", Links: []string{"1"}},
		{Title: "Third"},
		{Parent: "2", Title: "Child"},
	}
	for _, r := range regs {
		r.Type = models.TypeIdea
		r.Body = "body"
		if _, err := svc.Register(ctx, r); err != nil {
			t.Fatalf("Register %q: %v", r.Title, err)
		}
	}
	if err := svc.Sequence(ctx, "1", "3", false); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "read_card":
		result, err = srv.readCard(ctx, req)
	case "list_cards":
		result, err = srv.listCards(ctx, req)
	case "find_cards":
		result, err = srv.findCards(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "card_path":
		result, err = srv.cardPath(ctx, req)
	case "card_ancestry":
		result, err = srv.cardAncestry(ctx, req)
	case "card_ego":
		result, err = srv.cardEgo(ctx, req)
	case "card_sequence":
		result, err = srv.cardSequence(ctx, req)
	case "get_card_guide":
		result, err = srv.getCardGuide(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadCard(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_card", map[string]interface{}{"id": "1"})
	if r.IsError {
		t.Fatalf("read_card error: %s", resultText(r))
	}
	card, err := parser.Parse([]byte(resultText(r)))
	if err != nil {
		t.Fatalf("read_card output does not parse: %v", err)
	}
	if card.Title != "First" || card.SequenceNext != "3" {
		t.Errorf("card = %+v", card)
	}
	if len(card.Links) != 1 || card.Links[0] != "2" {
		t.Errorf("Links = %v, want [2]", card.Links)
	}
}

func TestReadCardMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_card", map[string]interface{}{"id": "99"})
	if !r.IsError {
		t.Fatal("expected error for missing card")
	}
}

func TestListCards(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_cards", nil)
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), resultText(r))
	}
	if lines[0] != "1 (idea) First [go]" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "2.1 ") {
		t.Errorf("third line = %q, want child 2.1 in natural order", lines[2])
	}
}

func TestFindCards(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "find_cards", map[string]interface{}{"tags": " go , "})
	if got := resultText(r); got != "1" {
		t.Errorf("find go = %q, want %q", got, "1")
	}

	r = callTool(t, srv, "find_cards", map[string]interface{}{"tags": "go,rust"})
	if got := resultText(r); got != "no cards found" {
		t.Errorf("find go,rust = %q", got)
	}

	r = callTool(t, srv, "find_cards", map[string]interface{}{"tags": " , "})
	if !r.IsError {
		t.Error("expected error for empty tag list")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "1"})
	if got := resultText(r); got != "2" {
		t.Errorf("backlinks of 1 = %q, want %q", got, "2")
	}
	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "3"})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks of 3 = %q", got)
	}
}

func TestTraversalTools(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		tool string
		args map[string]interface{}
		want string
	}{
		{"card_path", map[string]interface{}{"start": "1", "goal": "2.1"}, "1 -> 2 -> 2.1"},
		{"card_path", map[string]interface{}{"start": "3", "goal": "1"}, "No path found."},
		{"card_ancestry", map[string]interface{}{"id": "2.1"}, "2 > 2.1"},
		{"card_ego", map[string]interface{}{"id": "1"}, "1, 2, 3"},
		{"card_ego", map[string]interface{}{"id": "1", "depth": 2}, "1, 2, 2.1, 3"},
		{"card_ego", map[string]interface{}{"id": "1", "depth": 0}, "1"},
		{"card_sequence", map[string]interface{}{"id": "1"}, "1 -> 3"},
		{"card_sequence", map[string]interface{}{"id": "3", "backward": true}, "1 <- 3"},
	}
	for _, tt := range tests {
		r := callTool(t, srv, tt.tool, tt.args)
		if r.IsError {
			t.Errorf("%s %v: error %s", tt.tool, tt.args, resultText(r))
			continue
		}
		if got := resultText(r); got != tt.want {
			t.Errorf("%s %v = %q, want %q", tt.tool, tt.args, got, tt.want)
		}
	}
}

func TestTraversalUnknownCard(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "card_path", map[string]interface{}{"start": "1", "goal": "42"})
	if !r.IsError {
		t.Fatal("expected error for unknown goal")
	}
	if !strings.Contains(resultText(r), "42") {
		t.Errorf("error %q does not name the card", resultText(r))
	}
	r = callTool(t, srv, "card_ancestry", map[string]interface{}{"id": "9.9"})
	if !r.IsError {
		t.Fatal("expected error for unknown card")
	}
}

func TestCardGuide(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_card_guide", nil)
	if resultText(r) != CardGuide {
		t.Error("guide tool does not return the guide")
	}

	contents, err := srv.readGuideResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != guideURI || tc.Text != CardGuide {
		t.Errorf("resource = %+v", contents[0])
	}
}
