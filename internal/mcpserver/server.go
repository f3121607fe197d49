// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes portfolio editing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/syncengine"
	"github.com/joycelee/atelier/internal/workspace"
)

// Server wraps the MCP server with portfolio tools.
type Server struct {
	mcp    *server.MCPServer
	ws     *workspace.Workspace
	engine *syncengine.Engine
}

// New creates a new MCP server with all portfolio tools registered.
func New(ws *workspace.Workspace, engine *syncengine.Engine) *Server {
	s := &Server{ws: ws, engine: engine}

	s.mcp = server.NewMCPServer(
		"Atelier",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_portfolio",
		mcp.WithDescription("Read the full portfolio document as JSON."),
	), s.getPortfolio)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read one project by slug."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Project slug (e.g. sound-garden)")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("update_site",
		mcp.WithDescription("Update the site title, subtitle, and tagline. "+
			"All three fields are written as given."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Site title")),
		mcp.WithString("subtitle", mcp.Description("Site subtitle")),
		mcp.WithString("tagline", mcp.Description("Site tagline")),
	), s.updateSite)

	s.mcp.AddTool(mcp.NewTool("add_project",
		mcp.WithDescription("Add a new project. The slug is derived from the title. "+
			"Read the document contract first via the get_document_contract tool or "+
			"the atelier://document-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Project title")),
		mcp.WithString("type", mcp.Description("Project type label shown on the card")),
	), s.addProject)

	s.mcp.AddTool(mcp.NewTool("publish_portfolio",
		mcp.WithDescription("Publish the working copy to the content store. "+
			"Fails when credentials are missing or a sync is already running."),
		mcp.WithString("message", mcp.Description("Commit message (optional)")),
	), s.publishPortfolio)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List prior published versions available for revert, newest first."),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical portfolio document format. "+
			"Call this before adding or updating content to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("atelier://document-format", "Portfolio Document Format",
			mcp.WithResourceDescription("Canonical JSON document format the portfolio is stored in."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func (s *Server) getPortfolio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(s.ws.Document(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := s.ws.Document().ProjectBySlug(slug)
	if p == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	out, _ := json.MarshalIndent(p, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	site := models.Site{Title: title}
	if v, err := req.RequireString("subtitle"); err == nil {
		site.Subtitle = v
	}
	if v, err := req.RequireString("tagline"); err == nil {
		site.Tagline = v
	}
	s.ws.SetSite(site)
	return mcp.NewToolResultText("site updated"), nil
}

func (s *Server) addProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft := models.ProjectDraft{Title: title}
	if v, err := req.RequireString("type"); err == nil {
		draft.Type = v
	}

	p, err := s.ws.AddProject(draft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", p.Slug)), nil
}

func (s *Server) publishPortfolio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := ""
	if v, err := req.RequireString("message"); err == nil {
		message = v
	}
	if err := s.engine.Publish(ctx, message); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("published"), nil
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versions, err := s.engine.History(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(versions) == 0 {
		return mcp.NewToolResultText("no prior versions"), nil
	}
	out, _ := json.MarshalIndent(versions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "atelier://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
