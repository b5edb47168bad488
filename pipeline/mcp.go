// CLAUDE:SUMMARY MCP tool surface: process a message, chunk text, list formats.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mailsift/chunk"
	"github.com/hazyhaar/mailsift/kit"
)

// RegisterMCP registers the pipeline tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerProcessTool(srv)
	p.registerChunkTool(srv)
	p.registerFormatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- process ---

type processReq struct {
	Message       string `json:"message,omitempty"`
	MessageBase64 string `json:"message_base64,omitempty"`
}

func (r *processReq) raw() ([]byte, error) {
	if r.MessageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(r.MessageBase64)
		if err != nil {
			return nil, fmt.Errorf("decode message_base64: %w", err)
		}
		return data, nil
	}
	if r.Message == "" {
		return nil, fmt.Errorf("message or message_base64 is required")
	}
	return []byte(r.Message), nil
}

func (p *Pipeline) registerProcessTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_process",
		Description: "Process a raw RFC 2822 / MIME message: extract components, chunk the body, return the manifest.",
		InputSchema: inputSchema(map[string]any{
			"message":        map[string]any{"type": "string", "description": "Raw message text"},
			"message_base64": map[string]any{"type": "string", "description": "Raw message, base64-encoded (preferred for binary content)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*processReq)
		raw, err := r.raw()
		if err != nil {
			return nil, err
		}
		return p.Process(ctx, raw)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r processReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- chunk ---

type chunkReq struct {
	Text         string `json:"text"`
	Strategy     string `json:"strategy,omitempty"`
	Units        string `json:"units,omitempty"`
	MaxUnits     int    `json:"max_units,omitempty"`
	OverlapUnits int    `json:"overlap_units,omitempty"`
}

func (p *Pipeline) registerChunkTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_chunk",
		Description: "Split text into bounded overlapping chunks using the fixed, semantic or hybrid strategy.",
		InputSchema: inputSchema(map[string]any{
			"text":          map[string]any{"type": "string", "description": "Text to split"},
			"strategy":      map[string]any{"type": "string", "enum": []string{"fixed", "semantic", "hybrid"}},
			"units":         map[string]any{"type": "string", "enum": []string{"chars", "tokens"}},
			"max_units":     map[string]any{"type": "integer"},
			"overlap_units": map[string]any{"type": "integer"},
		}, []string{"text"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*chunkReq)
		opts := p.cfg.Chunking
		if r.Strategy != "" {
			opts.Strategy = chunk.Strategy(r.Strategy)
		}
		if r.Units != "" {
			opts.Units = chunk.Unit(r.Units)
		}
		if r.MaxUnits != 0 {
			opts.MaxUnits = r.MaxUnits
		}
		if r.OverlapUnits != 0 {
			opts.OverlapUnits = r.OverlapUnits
		}
		chunks, err := chunk.Split(r.Text, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"chunks": chunks, "count": len(chunks)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r chunkReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- formats ---

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_formats",
		Description: "List supported chunking strategies and convertible attachment formats.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{
			"strategies":      []string{"fixed", "semantic", "hybrid"},
			"units":           []string{"chars", "tokens"},
			"convert_formats": []string{"pdf", "docx", "xlsx"},
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
