// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes published documents and publishing helpers via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/docservice"
	"github.com/starford/notepub/internal/pipeline"
	"github.com/starford/notepub/internal/slug"
)

// ContractURI is the resource URI of the frontmatter contract.
const ContractURI = "notepub://frontmatter-format"

// Planner builds the link table over the current source tree.
type Planner interface {
	Prepare(ctx context.Context) (*pipeline.Plan, error)
}

// Server wraps the MCP server with notepub tools.
type Server struct {
	mcp     *server.MCPServer
	docs    *docservice.Service
	planner Planner
}

// New creates a new MCP server with all tools registered.
// planner may be nil, in which case resolve_link reports an error.
func New(docs *docservice.Service, planner Planner) *Server {
	s := &Server{docs: docs, planner: planner}

	s.mcp = server.NewMCPServer(
		"Notepub",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List published documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read a published document: metadata, rendered HTML and backlinks."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Document slug")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through published document titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all published documents that link to the specified document."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("compute_slug",
		mcp.WithDescription("Compute the slug a document would be published under and "+
			"report whether it is already taken."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Frontmatter title")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the source root")),
		mcp.WithString("created", mcp.Description("Frontmatter created value, verbatim")),
	), s.computeSlug)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a [[wiki link]] target against the current source tree."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target as written between the brackets")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("get_frontmatter_contract",
		mcp.WithDescription("Returns the frontmatter contract a source document must follow to be published."),
	), s.getFrontmatterContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Frontmatter Contract",
			mcp.WithResourceDescription("Source document format accepted by the publisher."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.docs.ListDocuments(ctx, docservice.ListParams{
		Tag:    req.GetString("tag", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"documents": items, "total": total}), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slugArg, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.docs.GetDocument(ctx, slugArg)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slugArg)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.docs.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slugArg, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.docs.Backlinks(ctx, slugArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	paths := make([]string, len(refs))
	for i, r := range refs {
		paths[i] = r.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

type slugResult struct {
	Slug   string `json:"slug"`
	Unique bool   `json:"unique"`
}

func (s *Server) computeSlug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sl := slug.Generate(title, path, req.GetString("created", ""))
	known, err := s.docs.KnownSlugs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(slugResult{Slug: sl, Unique: slug.IsUnique(sl, known)}), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.planner == nil {
		return mcp.NewToolResultError("link resolution unavailable: no source tree configured"), nil
	}
	plan, err := s.planner.Prepare(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, ok := plan.Table.Lookup(target)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unresolved: %s (falls back to /%s)", target, target)), nil
	}
	return jsonResult(info), nil
}

func (s *Server) getFrontmatterContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontmatterContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     FrontmatterContract,
		},
	}, nil
}
