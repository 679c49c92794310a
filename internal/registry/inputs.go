package registry

import "github.com/topaplus/commandcenter/internal/reports"

// ScopeInput is the filter shared by every analytical tool.
type ScopeInput struct {
	Source                string `json:"source" validate:"required" jsonschema_description:"Source id from list_sources"`
	Start                 string `json:"start,omitempty" validate:"civildate" jsonschema_description:"Inclusive start date (YYYY-MM-DD)"`
	End                   string `json:"end,omitempty" validate:"civildate" jsonschema_description:"Inclusive end date (YYYY-MM-DD)"`
	Agent                 string `json:"agent,omitempty" jsonschema_description:"Agent (consultant) id"`
	Company               string `json:"company,omitempty" jsonschema_description:"Company id"`
	Squad                 string `json:"squad,omitempty" jsonschema_description:"Squad id"`
	Mode                  string `json:"mode,omitempty" validate:"datemode" jsonschema_description:"standard (creation date) or hybrid-by-payment-date"`
	AgentScope            string `json:"agent_scope,omitempty" validate:"agentscope" jsonschema_description:"Active agent divisor: paid_active (default) or all_filtered"`
	GeneratedExcludesPaid bool   `json:"generated_excludes_paid,omitempty" jsonschema_description:"Count only non-disbursed contracts as generated"`
}

func (in ScopeInput) query() reports.Query {
	return reports.Query{
		Source:                in.Source,
		Start:                 in.Start,
		End:                   in.End,
		Agent:                 in.Agent,
		Company:               in.Company,
		Squad:                 in.Squad,
		Mode:                  in.Mode,
		AgentScope:            in.AgentScope,
		GeneratedExcludesPaid: in.GeneratedExcludesPaid,
	}
}

// SourceInput names a single source.
type SourceInput struct {
	Source string `json:"source" validate:"required" jsonschema_description:"Source id from list_sources"`
}

// RankingInput adds a ranking size to the scope.
type RankingInput struct {
	ScopeInput
	TopN int `json:"top_n,omitempty" validate:"omitempty,min=1,max=100" jsonschema_description:"Number of agents or employers to return (default 10)"`
}

// WindowInput adds the daily series window to the scope.
type WindowInput struct {
	ScopeInput
	Window      string `json:"window,omitempty" validate:"window" jsonschema_description:"all, last_7, last_15, last_30 or custom"`
	CustomStart string `json:"custom_start,omitempty" validate:"civildate" jsonschema_description:"Start of the 30-day custom window (YYYY-MM-DD)"`
}

// RejectionInput adds the drill-down switch to the scope.
type RejectionInput struct {
	ScopeInput
	Details bool `json:"details,omitempty" jsonschema_description:"Include every rejected row"`
}

// StageRecordsInput lists one funnel stage. The cursor carries the whole
// scope of the listing; when given, the other fields are ignored.
type StageRecordsInput struct {
	Source                string `json:"source,omitempty" validate:"required_without=Cursor" jsonschema_description:"Source id from list_sources"`
	Stage                 string `json:"stage,omitempty" validate:"required_without=Cursor,stage" jsonschema_description:"simulated, eligible, excluded, analyzed, approved, generated, paid or rejected"`
	Start                 string `json:"start,omitempty" validate:"civildate"`
	End                   string `json:"end,omitempty" validate:"civildate"`
	Agent                 string `json:"agent,omitempty"`
	Company               string `json:"company,omitempty"`
	Squad                 string `json:"squad,omitempty"`
	Mode                  string `json:"mode,omitempty" validate:"datemode"`
	GeneratedExcludesPaid bool   `json:"generated_excludes_paid,omitempty"`
	Cursor                string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"next_cursor of a previous page"`
	PageSize              int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=500" jsonschema_description:"Rows per page (default 50)"`
}

// RunReportInput runs a named report.
type RunReportInput struct {
	ScopeInput
	Report      string `json:"report" validate:"required" jsonschema_description:"Report name: command_center, agent_performance or one from the config file"`
	Window      string `json:"window,omitempty" validate:"window" jsonschema_description:"Override the report's daily window"`
	CustomStart string `json:"custom_start,omitempty" validate:"civildate"`
	TopN        int    `json:"top_n,omitempty" validate:"omitempty,min=1,max=100"`
	Details     bool   `json:"details,omitempty" jsonschema_description:"Include every rejected row"`
}

// ListSourcesInput takes no parameters.
type ListSourcesInput struct{}
