package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/saeedalam/radscribe/internal/bridge"
	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/internal/expand"
	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/internal/registry"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

// ProtocolVersion is reported from initialize
const ProtocolVersion = "2024-11-05"

// Options configures a Server
type Options struct {
	Tables        types.PatternTables
	AutoDetect    bool
	Store         *storage.MacroStore // nil serves inline macros only
	Owner         string
	ReportBaseURL string
	Version       string
	Log           *zap.Logger
}

// Server answers JSON-RPC tool calls over a line-delimited stream. One
// server holds one bridge, so detect followed by expand shares context.
type Server struct {
	tables        types.PatternTables
	modality      *classify.Classifier
	bodyPart      *classify.Classifier
	bridge        *bridge.Bridge
	engine        *expand.Engine
	store         *storage.MacroStore
	owner         string
	reportBaseURL string
	version       string
	log           *zap.Logger
	tools         map[string]ToolHandler

	outMu sync.Mutex
	out   io.Writer
}

// ToolHandler handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request is a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is a JSON-RPC error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InitializeResult is the result of initialize
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ServerInfo contains server information
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities contains server capabilities
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability contains tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolInfo describes a tool
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema describes tool input
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a property
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// NewServer creates a server from pattern tables. Labels are checked here
// because detected modalities are handed off in report URLs.
func NewServer(opts Options) (*Server, error) {
	if err := patterns.Validate(opts.Tables.Modality); err != nil {
		return nil, fmt.Errorf("modality table: %w", err)
	}
	if err := patterns.Validate(opts.Tables.BodyPart); err != nil {
		return nil, fmt.Errorf("body part table: %w", err)
	}

	modality, err := classify.New(opts.Tables.Modality)
	if err != nil {
		return nil, fmt.Errorf("modality table: %w", err)
	}
	bodyPart, err := classify.New(opts.Tables.BodyPart)
	if err != nil {
		return nil, fmt.Errorf("body part table: %w", err)
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		tables:        opts.Tables,
		modality:      modality,
		bodyPart:      bodyPart,
		bridge:        bridge.New(modality, bodyPart, opts.AutoDetect),
		engine:        expand.NewEngine(log),
		store:         opts.Store,
		owner:         opts.Owner,
		reportBaseURL: opts.ReportBaseURL,
		version:       version,
		log:           log,
		tools:         make(map[string]ToolHandler),
	}

	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	// Detection and expansion
	s.tools["detect"] = s.handleDetect
	s.tools["expand"] = s.handleExpand
	s.tools["set_auto_detect"] = s.handleSetAutoDetect
	s.tools["get_patterns"] = s.handleGetPatterns

	// Macro management
	s.tools["list_macros"] = s.handleListMacros
	s.tools["find_macros"] = s.handleFindMacros
	s.tools["add_macro"] = s.handleAddMacro
	s.tools["delete_macro"] = s.handleDeleteMacro
	s.tools["set_macro_active"] = s.handleSetMacroActive
}

// Bridge exposes the session bridge
func (s *Server) Bridge() *bridge.Bridge {
	return s.bridge
}

// Run reads requests from r and writes responses to w until r is exhausted
// or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.outMu.Lock()
	s.out = w
	s.outMu.Unlock()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large dictation buffers
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			// Don't send error with null ID; some clients reject it
			s.log.Warn("Parse error", zap.Error(err))
			continue
		}

		s.handleRequest(ctx, &req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (s *Server) handleRequest(ctx context.Context, req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		// No response needed
	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		s.sendError(req.ID, -32601, "Method not found", req.Method)
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: ServerInfo{
			Name:    "radscribe",
			Version: s.version,
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{
				ListChanged: false,
			},
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params", err.Error())
		return
	}

	handler, ok := s.tools[params.Name]
	if !ok {
		s.sendError(req.ID, -32601, "Tool not found", params.Name)
		return
	}

	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		s.log.Debug("Tool failed", zap.String("tool", params.Name), zap.Error(err))
		s.sendResult(req.ID, map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": fmt.Sprintf("Error: %v", err),
				},
			},
			"isError": true,
		})
		return
	}

	// Format result as text content
	resultJSON, _ := json.MarshalIndent(result, "", "  ")

	s.sendResult(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

func (s *Server) sendError(id interface{}, code int, message string, data interface{}) {
	// Don't send error responses for notifications (null/nil ID)
	if id == nil {
		s.log.Warn("Error for notification", zap.String("message", message), zap.Any("data", data))
		return
	}
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	s.send(resp)
}

func (s *Server) send(resp Response) {
	output, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("Marshal response", zap.Error(err))
		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.out == nil {
		return
	}
	fmt.Fprintln(s.out, string(output))
}

// source picks the macro snapshot for a call: inline macros when given,
// otherwise the owner's stored registry.
func (s *Server) source(inline []types.Macro) registry.Source {
	if inline != nil {
		return registry.Static(inline)
	}
	if s.store == nil {
		return registry.Static(nil)
	}
	return registry.New(s.store, s.owner)
}
