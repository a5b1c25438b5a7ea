// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes LoreKeeper tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/eventservice"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/render"
	"github.com/starford/lorekeeper/internal/timeline"
)

const contractURI = "lorekeeper://event-format"

// Server wraps the MCP server with LoreKeeper tools.
type Server struct {
	mcp *server.MCPServer
	svc *eventservice.Service
}

// New creates a new MCP server with all LoreKeeper tools registered.
func New(svc *eventservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"LoreKeeper",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	eventFields := []mcp.ToolOption{
		mcp.WithString("date", mcp.Required(), mcp.Description("ISO-8601 date, YYYY-MM-DD")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short headline")),
		mcp.WithString("type", mcp.Description("Category, e.g. milestone, training, work")),
		mcp.WithString("details", mcp.Description("Longer description")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Lowercase tags")),
		mcp.WithString("source", mcp.Description("Origin of the event")),
		mcp.WithString("sentiment", mcp.Description("Mood label stored in metadata")),
	}

	s.mcp.AddTool(mcp.NewTool("add_event", append([]mcp.ToolOption{
		mcp.WithDescription("Append an event to the timeline. Read the event format via " +
			"get_event_contract or the " + contractURI + " resource first."),
	}, eventFields...)...), s.addEvent)

	s.mcp.AddTool(mcp.NewTool("query_events",
		mcp.WithDescription("List timeline events matching every given filter, in timeline order."),
		mcp.WithNumber("year", mcp.Description("Restrict to one year")),
		mcp.WithString("start", mcp.Description("Inclusive start date")),
		mcp.WithString("end", mcp.Description("Inclusive end date")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Match events with any of these tags")),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived events")),
	), s.queryEvents)

	s.mcp.AddTool(mcp.NewTool("archive_event",
		mcp.WithDescription("Archive the first event with the given id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Event id")),
	), s.archiveEvent)

	s.mcp.AddTool(mcp.NewTool("correct_event", append([]mcp.ToolOption{
		mcp.WithDescription("Archive an event and append its corrected version with the same id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the event to correct")),
	}, eventFields...)...), s.correctEvent)

	s.mcp.AddTool(mcp.NewTool("search_events",
		mcp.WithDescription("Full-text search through event titles, details and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithBoolean("include_archived", mcp.Description("Include archived events")),
	), s.searchEvents)

	s.mcp.AddTool(mcp.NewTool("month_arc",
		mcp.WithDescription("Compose the monthly narrative arc for a date range (defaults to the current month)."),
		mcp.WithString("start", mcp.Description("Range start, YYYY-MM-DD")),
		mcp.WithString("end", mcp.Description("Range end, YYYY-MM-DD")),
		mcp.WithString("format", mcp.Description("markdown (default), compressed, html or json")),
	), s.monthArc)

	s.mcp.AddTool(mcp.NewTool("get_event_contract",
		mcp.WithDescription("Returns the LoreKeeper event format. Call this before adding or correcting events."),
	), s.getEventContract)

	// Resource: event format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Event Format Contract",
			mcp.WithResourceDescription("Fields and rules for timeline events."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEventFormatResource,
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
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

// eventArg builds an event from the shared event fields.
func eventArg(req mcp.CallToolRequest, defaultSource string) (models.TimelineEvent, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return models.TimelineEvent{}, err
	}
	title, err := req.RequireString("title")
	if err != nil {
		return models.TimelineEvent{}, err
	}
	ev := models.TimelineEvent{
		Date:     date,
		Title:    title,
		Type:     req.GetString("type", ""),
		Details:  req.GetString("details", ""),
		Tags:     req.GetStringSlice("tags", nil),
		Source:   req.GetString("source", defaultSource),
		Metadata: map[string]string{},
	}
	if s := req.GetString("sentiment", ""); s != "" {
		ev.Metadata[models.MetaSentiment] = s
	}
	return ev, nil
}

func (s *Server) addEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ev, err := eventArg(req, models.SourceUserEntry)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stored, err := s.svc.AddEvent(ctx, ev)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(stored), nil
}

func (s *Server) queryEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := s.svc.QueryEvents(ctx, timeline.Query{
		Year:            req.GetInt("year", 0),
		StartDate:       req.GetString("start", ""),
		EndDate:         req.GetString("end", ""),
		Tags:            req.GetStringSlice("tags", nil),
		IncludeArchived: req.GetBool("include_archived", false),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(events), nil
}

func (s *Server) archiveEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	archived, err := s.svc.ArchiveEvent(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(archived), nil
}

func (s *Server) correctEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := eventArg(req, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev.ID = id
	stored, err := s.svc.CorrectEvent(ctx, id, ev)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(stored), nil
}

func (s *Server) searchEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20, req.GetBool("include_archived", false))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) monthArc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var bounds [2]time.Time
	for i, name := range []string{"start", "end"} {
		v := req.GetString(name, "")
		if v == "" {
			continue
		}
		d, err := timeline.ParseDate(v)
		if err != nil {
			return errorResult(err), nil
		}
		bounds[i] = d
	}

	format := req.GetString("format", render.FormatMarkdown)
	if format == render.FormatTerminal {
		return mcp.NewToolResultError(fmt.Sprintf("format %q is not supported here", format)), nil
	}
	a, err := s.svc.MonthArc(ctx, bounds[0], bounds[1])
	if err != nil {
		return errorResult(err), nil
	}
	body, _, err := render.Render(a, format)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) getEventContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EventFormatContract), nil
}

func (s *Server) readEventFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     EventFormatContract,
		},
	}, nil
}
