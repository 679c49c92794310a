package reports

import (
	"context"
	"errors"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/internal/runtime"
	"github.com/topaplus/commandcenter/internal/snapshots"
	"github.com/topaplus/commandcenter/internal/sources"
	"github.com/topaplus/commandcenter/pkg/mcperr"
)

var (
	// ErrReportNotFound indicates an unknown report name.
	ErrReportNotFound = errors.New("reports: report not found")
	// ErrCursorInvalid indicates a cursor issued for another snapshot or scope.
	ErrCursorInvalid = errors.New("reports: cursor invalid")
	// ErrCursorBuild indicates the next page cursor could not be encoded.
	ErrCursorBuild = errors.New("reports: cursor build failed")
)

// ErrorCode maps a service error onto the canonical code shared by the MCP
// tools and the HTTP API.
func ErrorCode(err error) mcperr.Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, insights.ErrAgentRequired):
		return mcperr.AgentRequired
	case errors.Is(err, insights.ErrInvalidInput):
		return mcperr.Validation
	case errors.Is(err, ErrCursorInvalid):
		return mcperr.CursorInvalid
	case errors.Is(err, ErrCursorBuild):
		return mcperr.CursorBuildFailed
	case errors.Is(err, ErrReportNotFound):
		return mcperr.ReportNotFound
	case errors.Is(err, snapshots.ErrSourceNotFound):
		return mcperr.SourceNotFound
	case errors.Is(err, dataset.ErrSchemaMismatch), errors.Is(err, dataset.ErrEmptyTable):
		return mcperr.SchemaMismatch
	case errors.Is(err, runtime.ErrBusy):
		return mcperr.BusyResource
	case errors.Is(err, context.DeadlineExceeded):
		return mcperr.Timeout
	case errors.Is(err, sources.ErrFetch):
		return mcperr.FetchFailed
	}
	return mcperr.AnalysisFailed
}
