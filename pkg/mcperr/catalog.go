package mcperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical error code shared by the MCP tools and the HTTP API.
type Code string

const (
	// Validation & Input
	Validation        Code = "VALIDATION"
	AgentRequired     Code = "AGENT_REQUIRED"
	CursorInvalid     Code = "CURSOR_INVALID"
	CursorBuildFailed Code = "CURSOR_BUILD_FAILED"

	// Lookup
	SourceNotFound Code = "SOURCE_NOT_FOUND"
	ReportNotFound Code = "REPORT_NOT_FOUND"

	// Resource & Limits
	BusyResource Code = "BUSY_RESOURCE"
	Timeout      Code = "TIMEOUT"

	// Data
	FetchFailed    Code = "FETCH_FAILED"
	SchemaMismatch Code = "SCHEMA_MISMATCH"
	AnalysisFailed Code = "ANALYSIS_FAILED"

	// Access
	PermissionDenied Code = "PERMISSION_DENIED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code     `json:"code"`
	Message   string   `json:"message"`
	Retryable bool     `json:"retryable"`
	NextSteps []string `json:"next_steps,omitempty"`
	Status    int      `json:"-"`
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:        {Code: Validation, Message: "invalid inputs", Retryable: true, Status: http.StatusBadRequest, NextSteps: []string{"Correct the inputs per schema and retry", "Dates use YYYY-MM-DD"}},
	AgentRequired:     {Code: AgentRequired, Message: "this report needs an agent", Retryable: true, Status: http.StatusBadRequest, NextSteps: []string{"Pick an agent from filter_options and retry"}},
	CursorInvalid:     {Code: CursorInvalid, Message: "cursor is invalid for current context", Retryable: true, Status: http.StatusBadRequest, NextSteps: []string{"Restart pagination from the first page", "The source was refreshed since the cursor was issued"}},
	CursorBuildFailed: {Code: CursorBuildFailed, Message: "failed to encode next page cursor", Retryable: true, Status: http.StatusInternalServerError, NextSteps: []string{"Retry or narrow scope (smaller pages)"}},

	SourceNotFound: {Code: SourceNotFound, Message: "source not configured", Retryable: false, Status: http.StatusNotFound, NextSteps: []string{"Call list_sources to see configured ids"}},
	ReportNotFound: {Code: ReportNotFound, Message: "report not defined", Retryable: false, Status: http.StatusNotFound, NextSteps: []string{"Use command_center, agent_performance or a report from the config file"}},

	BusyResource: {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, Status: http.StatusTooManyRequests, NextSteps: []string{"Retry after a short delay"}},
	Timeout:      {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, Status: http.StatusGatewayTimeout, NextSteps: []string{"Retry; the source may be slow to respond"}},

	FetchFailed:    {Code: FetchFailed, Message: "failed to fetch source data", Retryable: true, Status: http.StatusBadGateway, NextSteps: []string{"Check the sheet is shared or the file/database is reachable", "Retry after refresh_source"}},
	SchemaMismatch: {Code: SchemaMismatch, Message: "source columns do not match the expected schema", Retryable: false, Status: http.StatusUnprocessableEntity, NextSteps: []string{"Rename the column in the source or add a column override in the config"}},
	AnalysisFailed: {Code: AnalysisFailed, Message: "analysis failed", Retryable: true, Status: http.StatusInternalServerError, NextSteps: []string{"Retry with a narrower filter"}},

	PermissionDenied: {Code: PermissionDenied, Message: "operation not permitted", Retryable: false, Status: http.StatusForbidden, NextSteps: []string{"Enable admin tools or supply the admin key"}},
}

// Lookup returns the catalog entry for code. Unknown codes map to an
// internal error entry carrying the code verbatim.
func Lookup(code Code) Entry {
	if e, ok := catalog[code]; ok {
		return e
	}
	return Entry{Code: code, Message: strings.ToLower(strings.ReplaceAll(string(code), "_", " ")), Status: http.StatusInternalServerError}
}

// HTTPStatus maps a code onto the HTTP status used by the REST API.
func HTTPStatus(code Code) int {
	return Lookup(code).Status
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		// Unknown code; preserve as-is
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// Text renders the same "CODE: message | nextSteps" line without wrapping it
// in a tool result.
func Text(code Code, message string) string {
	return normalize(code, message)
}
