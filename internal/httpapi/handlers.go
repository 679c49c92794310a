package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/topaplus/commandcenter/internal/reports"
	"github.com/topaplus/commandcenter/pkg/mcperr"
	"github.com/topaplus/commandcenter/pkg/validation"
	"github.com/topaplus/commandcenter/pkg/version"
)

// Handler serves the JSON API over the reports service.
type Handler struct {
	Service *reports.Service
	Logger  zerolog.Logger
}

// reportParams are the query parameters of a report call.
type reportParams struct {
	Start                 string `form:"start" validate:"civildate"`
	End                   string `form:"end" validate:"civildate"`
	Agent                 string `form:"agent"`
	Company               string `form:"company"`
	Squad                 string `form:"squad"`
	Mode                  string `form:"mode" validate:"datemode"`
	AgentScope            string `form:"agent_scope" validate:"agentscope"`
	GeneratedExcludesPaid bool   `form:"generated_excludes_paid"`
	Window                string `form:"window" validate:"window"`
	CustomStart           string `form:"custom_start" validate:"civildate"`
	TopN                  int    `form:"top_n" validate:"omitempty,min=1,max=100"`
	Details               bool   `form:"details"`
}

// stageParams are the query parameters of a stage listing.
type stageParams struct {
	Start                 string `form:"start" validate:"civildate"`
	End                   string `form:"end" validate:"civildate"`
	Agent                 string `form:"agent"`
	Company               string `form:"company"`
	Squad                 string `form:"squad"`
	Mode                  string `form:"mode" validate:"datemode"`
	GeneratedExcludesPaid bool   `form:"generated_excludes_paid"`
	Cursor                string `form:"cursor" validate:"omitempty,cursor"`
	PageSize              int    `form:"page_size" validate:"omitempty,min=1,max=500"`
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "build": version.Build()})
}

// SourcesList returns the configured sources and runnable reports.
func (h *Handler) SourcesList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.Service.Sources(), "reports": h.Service.Reports()})
}

// SourceOptions returns the filter values of a source.
func (h *Handler) SourceOptions(c *gin.Context) {
	out, err := h.Service.Options(c.Request.Context(), c.Param("source"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RunReport runs a named report over a source.
func (h *Handler) RunReport(c *gin.Context) {
	var p reportParams
	if !bind(c, &p) {
		return
	}
	out, err := h.Service.RunReport(c.Request.Context(), c.Param("report"), reports.Query{
		Source:                c.Param("source"),
		Start:                 p.Start,
		End:                   p.End,
		Agent:                 p.Agent,
		Company:               p.Company,
		Squad:                 p.Squad,
		Mode:                  p.Mode,
		AgentScope:            p.AgentScope,
		GeneratedExcludesPaid: p.GeneratedExcludesPaid,
		Window:                p.Window,
		CustomStart:           p.CustomStart,
		TopN:                  p.TopN,
		Details:               p.Details,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// StageRecords pages through one funnel stage.
func (h *Handler) StageRecords(c *gin.Context) {
	var p stageParams
	if !bind(c, &p) {
		return
	}
	out, err := h.Service.StageRecords(c.Request.Context(), reports.StageQuery{
		Query: reports.Query{
			Source: c.Param("source"), Start: p.Start, End: p.End,
			Agent: p.Agent, Company: p.Company, Squad: p.Squad, Mode: p.Mode,
			GeneratedExcludesPaid: p.GeneratedExcludesPaid,
		},
		Stage:    c.Param("stage"),
		Cursor:   p.Cursor,
		PageSize: p.PageSize,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Refresh reloads a source from its origin.
func (h *Handler) Refresh(c *gin.Context) {
	out, err := h.Service.Refresh(c.Request.Context(), c.Param("source"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// bind reads query parameters and validates them with the shared rules.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		writeError(c, mcperr.Validation, "malformed query parameters", err.Error())
		return false
	}
	if msg := validation.ValidateStruct(dst); msg != "" {
		code, text, _ := strings.Cut(msg, ":")
		writeError(c, mcperr.Code(code), strings.TrimSpace(text), nil)
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := reports.ErrorCode(err)
	if mcperr.HTTPStatus(code) >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("request_id", c.GetString(RequestIDHeader)).Msg("request failed")
	}
	writeError(c, code, err.Error(), mcperr.Lookup(code).NextSteps)
}

func errorBody(code mcperr.Code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// writeError renders {"error":{"code","message","details"}} with the status
// of the code.
func writeError(c *gin.Context, code mcperr.Code, message string, details any) {
	body := errorBody(code, message)
	if details != nil {
		body["error"].(gin.H)["details"] = details
	}
	c.AbortWithStatusJSON(mcperr.HTTPStatus(code), body)
}
