// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes skin include tools for editor and LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/skinlens/internal/skinservice"
)

// IncludeSyntaxURI is the resource URI of IncludeSyntaxGuide.
const IncludeSyntaxURI = "skin://include-syntax"

// Server wraps the MCP server with skin tools.
type Server struct {
	mcp *server.MCPServer
	svc *skinservice.Service
}

// New creates a new MCP server with all skin tools registered.
func New(svc *skinservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"skinlens",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List the resolution folders of the skin with their include counts."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_includes",
		mcp.WithDescription("List the active includes, variables, constants and expressions of a folder."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Resolution folder (e.g. 1080i)")),
		mcp.WithString("kind", mcp.Description("Optional kind: include, variable, constant or expression")),
		mcp.WithString("query", mcp.Description("Optional case-insensitive name substring")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 for all)")),
	), s.listIncludes)

	s.mcp.AddTool(mcp.NewTool("resolve_include",
		mcp.WithDescription("Return the XML of a named include with every nested include reference inlined. "+
			"Read the skin://include-syntax resource for the resolution rules."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Resolution folder")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Include name")),
	), s.resolveInclude)

	s.mcp.AddTool(mcp.NewTool("list_constants",
		mcp.WithDescription("List the constant names of a folder."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Resolution folder")),
	), s.listConstants)

	s.mcp.AddTool(mcp.NewTool("find_definition",
		mcp.WithDescription("Find the file and line declaring a name in every folder."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Include, variable, constant or expression name")),
	), s.findDefinition)

	s.mcp.AddTool(mcp.NewTool("complete_name",
		mcp.WithDescription("Complete an include, variable, constant or expression name from a prefix."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Resolution folder")),
		mcp.WithString("prefix", mcp.Description("Case-insensitive name prefix")),
		mcp.WithString("kind", mcp.Description("Optional kind: include, variable, constant or expression")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.completeName)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Search the XML content of active declarations in every folder."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("list_colors",
		mcp.WithDescription("List every color of the skin's color files."),
	), s.listColors)

	s.mcp.AddTool(mcp.NewTool("list_fonts",
		mcp.WithDescription("List the fonts of the first fontset of a folder's Font.xml."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Resolution folder")),
	), s.listFonts)

	s.mcp.AddTool(mcp.NewTool("reload_file",
		mcp.WithDescription("Reload the include table, colors or fonts depending on a changed skin file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the changed file, relative to the skin root")),
	), s.reloadFile)

	s.mcp.AddResource(
		mcp.NewResource(IncludeSyntaxURI, "Include Syntax",
			mcp.WithResourceDescription("How skin include files are declared, referenced and resolved."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readIncludeSyntaxResource,
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

func (s *Server) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Folders(ctx)), nil
}

func (s *Server) listIncludes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := s.svc.Includes(ctx, folder, req.GetString("kind", ""), req.GetString("query", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type item struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		File string `json:"file"`
		Line int    `json:"line"`
	}
	items := make([]item, 0, len(recs))
	for _, r := range recs {
		items = append(items, item{Name: r.Name, Kind: r.Kind, File: r.File, Line: r.Line})
	}
	return jsonResult(items), nil
}

func (s *Server) resolveInclude(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Include(ctx, folder, name, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Resolved), nil
}

func (s *Server) listConstants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := s.svc.Constants(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no constants found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) findDefinition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	locs, err := s.svc.Definitions(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(locs), nil
}

func (s *Server) completeName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.Complete(ctx, folder, req.GetString("prefix", ""), req.GetString("kind", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listColors(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Colors(ctx)), nil
}

func (s *Server) listFonts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fonts, err := s.svc.Fonts(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fonts), nil
}

func (s *Server) reloadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Reload(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) readIncludeSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      IncludeSyntaxURI,
			MIMEType: "text/markdown",
			Text:     IncludeSyntaxGuide,
		},
	}, nil
}
