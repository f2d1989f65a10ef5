// Package mcp serves the silo tools over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// Custom MCP error codes for silo, in the JSON-RPC server-error range.
const (
	// ErrCodeStoreDisabled indicates the knowledge base is disabled.
	ErrCodeStoreDisabled = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeFileNotFound indicates a path does not exist.
	ErrCodeFileNotFound = -32004

	// ErrCodeRejected indicates the source policy refused a file.
	ErrCodeRejected = -32005

	// ErrCodeStorage indicates the store failed to read or write.
	ErrCodeStorage = -32006

	// ErrCodeExtraction indicates text extraction failed.
	ErrCodeExtraction = -32007

	// ErrCodeBusy indicates another process holds the data directory.
	ErrCodeBusy = -32008

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a tool failure with its protocol code. Category and Reason
// carry the silo error category and code when the failure came from one.
type MCPError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("MCP error %d [%s]: %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var se *silerrors.SiloError
	if errors.As(err, &se) {
		return mapSiloError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: "Unknown tool: " + name,
	}
}

func mapSiloError(se *silerrors.SiloError) *MCPError {
	out := &MCPError{
		Code:     ErrCodeInternalError,
		Message:  silerrors.Describe(se),
		Category: string(se.Category),
		Reason:   se.Code,
	}

	switch se.Category {
	case silerrors.CategoryIO:
		if se.Code == silerrors.ErrCodeFileNotFound {
			out.Code = ErrCodeFileNotFound
		}
	case silerrors.CategoryExtraction:
		out.Code = ErrCodeExtraction
	case silerrors.CategoryEmbedding:
		out.Code = ErrCodeEmbeddingFailed
		if se.Code == silerrors.ErrCodeEmbeddingTimeout {
			out.Code = ErrCodeTimeout
		}
	case silerrors.CategoryStorage:
		out.Code = ErrCodeStorage
		if se.Code == silerrors.ErrCodeStoreLocked {
			out.Code = ErrCodeBusy
		}
	case silerrors.CategoryUnsupported:
		out.Code = ErrCodeStoreDisabled
	case silerrors.CategoryValidation:
		out.Code = ErrCodeInvalidParams
		if se.Code == silerrors.ErrCodeRejected {
			out.Code = ErrCodeRejected
		}
	case silerrors.CategoryConfig:
		out.Code = ErrCodeInvalidRequest
	}
	return out
}
