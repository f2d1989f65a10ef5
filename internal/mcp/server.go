package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/silo/internal/index"
	"github.com/Aman-CERP/silo/internal/scanner"
	"github.com/Aman-CERP/silo/internal/silo"
	"github.com/Aman-CERP/silo/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "silo"

// Server is the MCP server for silo. It exposes the knowledge base held
// by a silo.State as tools and resources.
type Server struct {
	mcp    *mcp.Server
	state  *silo.State
	logger *slog.Logger

	tools    []ToolInfo
	handlers map[string]toolFunc
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// toolFunc runs a tool from loosely typed arguments.
type toolFunc func(ctx context.Context, args map[string]any) (any, error)

// NewServer creates the MCP server and registers every tool and resource.
func NewServer(state *silo.State) (*Server, error) {
	if state == nil {
		return nil, errors.New("silo state is required")
	}

	s := &Server{
		state:    state,
		logger:   slog.Default(),
		handlers: make(map[string]toolFunc),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools in registration order.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), s.tools...)
}

// CallTool invokes a tool by name with JSON-like arguments, the way a
// client would, and returns its structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, NewMethodNotFoundError(name)
	}
	return h(ctx, args)
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	addTool(s, ToolListFiles,
		"List the entries of a directory (not recursive). Returns name, path and whether each entry is a file or a directory.",
		s.listFiles, nil)
	addTool(s, ToolReadFile,
		"Read the text of a file. PDFs and spreadsheets are returned as extracted text, capped at the configured text limit.",
		s.readFile, nil)
	addTool(s, ToolSearchKnowledgeBase,
		"Search the indexed personal knowledge base. Returns the best matching chunks with their file paths and scores.",
		s.search, func(out SearchOutput) string { return FormatSearchResults(out) })
	addTool(s, ToolGetConfig,
		"Return the effective configuration and the path it was loaded from.",
		s.getConfig, nil)
	addTool(s, ToolSetIndexRoots,
		"Replace the directories to index. The configuration file is backed up and rewritten.",
		s.setIndexRoots, nil)
	addTool(s, ToolValidateIndexConfig,
		"Check that the configured roots exist and the size limits are usable. Problems are listed as issues.",
		s.validateIndexConfig, nil)
	addTool(s, ToolIndex,
		"Index the configured roots (or the given ones) in the background. Set wait to block until the run finishes.",
		s.index, func(out IndexOutput) string { return FormatIndexOutput(out) })
	addTool(s, ToolIndexStatus,
		"Report index health: stored chunks and files, the active embedder and the progress of any indexing run.",
		s.indexStatus, func(out silo.Status) string { return FormatStatus(out) })
	addTool(s, ToolPreviewScan,
		"Show which files an index run would pick up and which it would skip, without reading or storing anything.",
		s.previewScan, nil)
	addTool(s, ToolExtractPreview,
		"Show how a single file is extracted: its kind, text length and the first characters.",
		s.extractPreview, nil)
	addTool(s, ToolIngestOne,
		"Index a single file now, applying the same acceptance rules as a full run.",
		s.ingestOne, nil)

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.tools)))
}

// addTool registers h with the SDK and with CallTool. When text is set its
// rendering becomes the human readable content next to the structured
// output.
func addTool[In, Out any](s *Server, name, description string, h func(context.Context, In) (Out, error), text func(Out) string) {
	run := func(ctx context.Context, in In) (Out, error) {
		start := time.Now()
		requestID := generateRequestID()

		out, err := h(ctx, in)
		duration := time.Since(start)
		if err != nil {
			mapped := MapError(err)
			s.logger.Error("tool_failed",
				slog.String("request_id", requestID),
				slog.String("tool", name),
				slog.Duration("duration", duration),
				slog.Int("code", mapped.Code),
				slog.String("error", err.Error()))
			var zero Out
			return zero, mapped
		}

		s.logger.Info("tool_completed",
			slog.String("request_id", requestID),
			slog.String("tool", name),
			slog.Duration("duration", duration))
		return out, nil
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		out, err := run(ctx, in)
		if err != nil {
			return nil, out, err
		}
		if text == nil {
			return nil, out, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text(out)}},
		}, out, nil
	})

	s.handlers[name] = func(ctx context.Context, args map[string]any) (any, error) {
		in, err := decodeArgs[In](name, args)
		if err != nil {
			return nil, err
		}
		out, err := run(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	s.tools = append(s.tools, ToolInfo{Name: name, Description: description})
	s.logger.Debug("Registered tool", slog.String("name", name))
}

func decodeArgs[In any](name string, args map[string]any) (In, error) {
	var in In
	if len(args) == 0 {
		return in, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return in, NewInvalidParamsError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, NewInvalidParamsError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}
	return in, nil
}

func (s *Server) listFiles(ctx context.Context, in ListFilesInput) (ListFilesOutput, error) {
	entries, err := s.state.ListFiles(ctx, in.Directory)
	if err != nil {
		return ListFilesOutput{}, err
	}
	return ListFilesOutput{Entries: entries}, nil
}

func (s *Server) readFile(ctx context.Context, in ReadFileInput) (ReadFileOutput, error) {
	fc, err := s.state.ReadFile(ctx, in.Path)
	if err != nil {
		return ReadFileOutput{}, err
	}
	return ReadFileOutput{
		Path:      fc.Path,
		Content:   fc.Content,
		Truncated: fc.Truncated,
		MIMEType:  MimeTypeForPath(fc.Path),
	}, nil
}

func (s *Server) search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	res, err := s.state.Search(ctx, in.Query, in.TopK)
	if err != nil {
		return SearchOutput{}, err
	}
	return toSearchOutput(res), nil
}

func (s *Server) getConfig(_ context.Context, _ EmptyInput) (silo.ConfigView, error) {
	return s.state.ConfigSnapshot(), nil
}

func (s *Server) setIndexRoots(ctx context.Context, in SetIndexRootsInput) (silo.ConfigView, error) {
	return s.state.SetIndexRoots(ctx, in.Roots)
}

func (s *Server) validateIndexConfig(ctx context.Context, _ EmptyInput) (silo.Validation, error) {
	return s.state.ValidateIndexConfig(ctx), nil
}

func (s *Server) index(ctx context.Context, in IndexInput) (IndexOutput, error) {
	opts := silo.IndexOptions{
		MaxFiles:    in.MaxFiles,
		Concurrency: in.Concurrency,
	}
	started, err := s.state.StartBackgroundIndex(ctx, in.Roots, opts)
	if err != nil {
		return IndexOutput{}, err
	}
	if started && in.Wait {
		if err := s.state.WaitBackgroundIndex(ctx); err != nil {
			return IndexOutput{}, err
		}
	}
	return toIndexOutput(started, s.state.IndexStatus()), nil
}

func (s *Server) indexStatus(ctx context.Context, _ EmptyInput) (silo.Status, error) {
	st := s.state.Status(ctx)
	if st.Indexing != nil {
		snap := normalizeSnapshot(*st.Indexing)
		st.Indexing = &snap
	}
	return st, nil
}

func (s *Server) previewScan(ctx context.Context, in PreviewScanInput) (PreviewScanOutput, error) {
	caps := scanner.PreviewOptions{
		MaxSamples:        in.MaxSamples,
		MaxSkippedSamples: in.MaxSkipped,
	}
	summary, err := s.state.PreviewScan(ctx, in.Roots, nil, caps)
	if err != nil {
		return PreviewScanOutput{}, err
	}
	return toScanOutput(summary), nil
}

func (s *Server) extractPreview(ctx context.Context, in ExtractPreviewInput) (silo.ExtractPreview, error) {
	return s.state.ExtractPreview(ctx, in.Path, in.MaxChars)
}

func (s *Server) ingestOne(ctx context.Context, in IngestOneInput) (index.IngestStats, error) {
	return s.state.IngestOne(ctx, in.Path)
}

// Serve runs the server on the given transport until ctx is canceled or
// the client disconnects.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
