package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Index     DocumentIndex // optional; if nil, index_status is not registered
	Retriever Retriever
	Answerer  Answerer // optional; if nil, ask_documents is not registered
	UploadDir string
	TopK      int
}

// NewMCPServer creates an MCP server exposing the document index as tools.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"docchat",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("docchat: search and list the documents ingested into the local index."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Full-text search over ingested documents; returns the best matching passages."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of passages (default 3)")),
		),
		mcpSearchDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("list_files",
			mcp.WithDescription("List the uploaded files with their sizes in bytes."),
		),
		mcpListFiles(deps),
	)

	if deps.Index != nil {
		s.AddTool(
			mcp.NewTool("index_status",
				mcp.WithDescription("List the ingested documents with their chunk counts."),
			),
			mcpIndexStatus(deps),
		)
	}

	if deps.Answerer != nil {
		s.AddTool(
			mcp.NewTool("ask_documents",
				mcp.WithDescription("Answer a question from the ingested documents."),
				mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			),
			mcpAskDocuments(deps),
		)
	}

	return s
}

func (d MCPDeps) topK() int {
	if d.TopK <= 0 {
		return defaultTopK
	}
	return d.TopK
}

func mcpSearchDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		limit := req.GetInt("limit", deps.topK())
		if limit <= 0 || limit > 50 {
			limit = deps.topK()
		}

		chunks, err := deps.Retriever.Retrieve(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		type result struct {
			Document string  `json:"document"`
			Seq      int     `json:"seq"`
			Text     string  `json:"text"`
			Score    float64 `json:"score"`
		}
		results := make([]result, len(chunks))
		for i, c := range chunks {
			results[i] = result{Document: c.Document, Seq: c.Seq, Text: c.Text, Score: c.Score}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListFiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		files, err := ListUploads(deps.UploadDir)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		b, err := json.Marshal(files)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding files: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpIndexStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := summarizeIndex(deps.Index)
		if err != nil {
			return mcpError(fmt.Sprintf("reading index: %v", err)), nil
		}
		b, err := json.Marshal(summary)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding index: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		chunks, err := deps.Retriever.Retrieve(ctx, question, deps.topK())
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		answer, err := deps.Answerer.Answer(ctx, question, chunks)
		if err != nil {
			return mcpError(fmt.Sprintf("answer failed: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
