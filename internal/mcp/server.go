// Package mcp exposes workflow governance operations as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/auth"
	"workflow-governance/backend/internal/errs"
	"workflow-governance/backend/internal/recommend"
	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/internal/validation"
	"workflow-governance/backend/pkg/models"
)

// Server wraps an MCPServer whose tools call the governance service.
type Server struct {
	mcpServer  *server.MCPServer
	service    *services.GovernanceService
	catalog    []models.Bundle
	validation validation.Context
}

// NewServer creates a Server with every tool registered.
func NewServer(svc *services.GovernanceService, catalog []models.Bundle, vctx validation.Context, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Governance",
			version,
			server.WithToolCapabilities(true),
		),
		service:    svc,
		catalog:    catalog,
		validation: vctx,
	}

	s.registerTools()
	return s
}

// MCPServer returns the underlying server for transport wiring.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"validate_workflow",
			mcp.WithDescription("Validate a workflow document without storing it"),
			mcp.WithString("workflow", mcp.Required(), mcp.Description("The workflow as a JSON object")),
		),
		s.handleValidate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"recommend_bundle",
			mcp.WithDescription("Recommend a template bundle for a use case"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Free-text use case description")),
		),
		s.handleRecommend,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_workflow",
			mcp.WithDescription("Fetch a stored workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The workflow ID")),
		),
		s.handleGetWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"export_workflow",
			mcp.WithDescription("Render a stored workflow for download"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The workflow ID")),
			mcp.WithString("format",
				mcp.Description("Output format"),
				mcp.Enum(services.FormatJSON, services.FormatYAML, services.FormatCSV),
				mcp.DefaultString(services.FormatJSON)),
		),
		s.handleExport,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"audit_trail",
			mcp.WithDescription("List the audit entries of a workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The workflow ID")),
			mcp.WithNumber("recent", mcp.Description("Only return this many entries, newest first")),
		),
		s.handleAuditTrail,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"request_approval",
			mcp.WithDescription("Open an approval cycle on a workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The workflow ID")),
			mcp.WithArray("approvers", mcp.Required(), mcp.WithStringItems(), mcp.Description("User IDs of the approvers")),
			mcp.WithString("notes", mcp.Description("Notes for the approvers")),
		),
		s.handleRequestApproval,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"approve_workflow",
			mcp.WithDescription("Approve the pending cycle and publish the workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The workflow ID")),
			mcp.WithString("notes", mcp.Description("Approval notes")),
		),
		s.handleApprove,
	)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var w models.Workflow
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid workflow: %v", err)), nil
	}
	return jsonResult(validation.Validate(w, s.validation))
}

func (s *Server) handleRecommend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recommend.Match(text, s.catalog))
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.service.Get(ctx, id)
	if err != nil {
		return toolError("Failed to get workflow", err), nil
	}
	return jsonResult(w)
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("Not authenticated"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := request.GetString("format", services.FormatJSON)

	out, err := s.service.ExportWorkflow(ctx, id, format, actor)
	if err != nil {
		return toolError("Failed to export workflow", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleAuditTrail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.service.AuditTrail(ctx, id)
	if err != nil {
		return toolError("Failed to read audit trail", err), nil
	}
	if n := request.GetInt("recent", 0); n > 0 {
		entries = audit.Recent(entries, n)
	}
	return jsonResult(entries)
}

func (s *Server) handleRequestApproval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("Not authenticated"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	approvers, err := request.RequireStringSlice("approvers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	w, err := s.service.RequestApproval(ctx, id, approvers, request.GetString("notes", ""), actor)
	if err != nil {
		return toolError("Failed to request approval", err), nil
	}
	return jsonResult(w)
}

func (s *Server) handleApprove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("Not authenticated"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	w, err := s.service.ApproveWorkflow(ctx, id, request.GetString("notes", ""), actor)
	if err != nil {
		return toolError("Failed to approve workflow", err), nil
	}
	return jsonResult(w)
}

// toolError reports caller errors in full and hides storage detail.
func toolError(prefix string, err error) *mcp.CallToolResult {
	if errors.Is(err, errs.ErrValidation) || errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrStateConflict) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
	}
	return mcp.NewToolResultError(prefix)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// MountHTTPHandlers serves the streamable HTTP transport on /mcp and the
// SSE transport on /mcp/sse and /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
