// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Agenda scheduling tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/importer"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/storage"
)

const grammarURI = "agenda://phrase-grammar"

// Server wraps the MCP server with Agenda tools.
type Server struct {
	mcp *server.MCPServer
	svc *eventservice.Service

	// Optional: set when the import directory is enabled.
	imports  storage.Provider
	importer *importer.Importer
}

// New creates a new MCP server with all Agenda tools registered.
// imports and im may be nil, in which case upload_calendar is not offered.
func New(svc *eventservice.Service, imports storage.Provider, im *importer.Importer) *Server {
	s := &Server{svc: svc, imports: imports, importer: im}

	s.mcp = server.NewMCPServer(
		"Agenda",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_range",
		mcp.WithDescription("Resolve a relative-date phrase (e.g. \"next Thu\", \"in 2 weeks\") into a "+
			"working-hours range. Read get_phrase_grammar for the accepted phrases."),
		mcp.WithString("phrase", mcp.Required(), mcp.Description("Relative-date phrase")),
	), s.resolveRange)

	s.mcp.AddTool(mcp.NewTool("free_slots",
		mcp.WithDescription("List free slots inside the range named by a phrase, "+
			"considering the bookings of one person (or everyone when person is empty)."),
		mcp.WithString("phrase", mcp.Required(), mcp.Description("Relative-date phrase")),
		mcp.WithString("person", mcp.Description("Person id (optional)")),
	), s.freeSlots)

	s.mcp.AddTool(mcp.NewTool("book_slot",
		mcp.WithDescription("Book an event for a person. The slot uses the display form "+
			"\"DD/MM/YYYY HH:MM - HH:MM\" returned by free_slots."),
		mcp.WithString("person", mcp.Required(), mcp.Description("Person id")),
		mcp.WithString("slot", mcp.Required(), mcp.Description("Slot, e.g. 03/01/2024 10:00 - 11:00")),
		mcp.WithString("details", mcp.Description("Free-form description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.bookSlot)

	s.mcp.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List booked events in insertion order."),
		mcp.WithString("person", mcp.Description("Only this person's events (optional)")),
	), s.listEvents)

	s.mcp.AddTool(mcp.NewTool("cancel_event",
		mcp.WithDescription("Cancel a booked event by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Event id")),
	), s.cancelEvent)

	s.mcp.AddTool(mcp.NewTool("search_events",
		mcp.WithDescription("Full-text search through event details and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchEvents)

	s.mcp.AddTool(mcp.NewTool("get_phrase_grammar",
		mcp.WithDescription("Returns the grammar of accepted relative-date phrases and the slot format. "+
			"Call this before resolving phrases or booking slots."),
	), s.getPhraseGrammar)

	if imports != nil && im != nil {
		s.mcp.AddTool(mcp.NewTool("upload_calendar",
			mcp.WithDescription("Import an iCalendar (.ics) file from a data: URI or http(s) URL. "+
				"The file is saved to the import directory and its events replace any "+
				"previously imported from the same file name. The person defaults to the file stem."),
			mcp.WithString("url", mcp.Required(), mcp.Description("data:text/calendar;base64,... or https://...")),
			mcp.WithString("filename", mcp.Description("Target file name, e.g. alice.ics (optional)")),
		), s.uploadCalendar)
	}

	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Phrase Grammar",
			mcp.WithResourceDescription("Relative-date phrases accepted by resolve_range and free_slots."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) resolveRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phrase, err := req.RequireString("phrase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rng, err := s.svc.ResolveRange(ctx, phrase)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"phrase": phrase, "range": rng, "display": rng.String()}), nil
}

func (s *Server) freeSlots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phrase, err := req.RequireString("phrase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	person := models.PersonID(req.GetString("person", ""))
	av, err := s.svc.Availability(ctx, phrase, person)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(av.Slots) == 0 {
		return mcp.NewToolResultText("no free slots in " + av.Range.String()), nil
	}
	return jsonResult(av.Slots), nil
}

func (s *Server) bookSlot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	person, err := req.RequireString("person")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slot, err := req.RequireString("slot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tags []models.Tag
	for _, t := range strings.Split(req.GetString("tags", ""), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, models.Tag(t))
		}
	}

	ev, err := s.svc.Book(ctx, eventservice.BookRequest{
		PersonID: models.PersonID(person),
		Details:  req.GetString("details", ""),
		Tags:     tags,
		Slot:     slot,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ev.View()), nil
}

func (s *Server) listEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events := s.svc.List(ctx, models.PersonID(req.GetString("person", "")))
	if len(events) == 0 {
		return mcp.NewToolResultText("no events"), nil
	}
	views := make([]models.EventView, len(events))
	for i, ev := range events {
		views[i] = ev.View()
	}
	return jsonResult(views), nil
}

func (s *Server) cancelEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := s.svc.Cancel(ctx, models.EventID(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel %s: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cancelled: %s (%s)", ev.ID(), ev.Interval())), nil
}

func (s *Server) searchEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getPhraseGrammar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PhraseGrammar), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     PhraseGrammar,
		},
	}, nil
}
