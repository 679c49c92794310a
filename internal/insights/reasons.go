package insights

import (
	"sort"
	"strings"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// Rejection categories.
const (
	CategoryNoMargin      = "No available margin"
	CategoryIncome        = "Income below minimum wage threshold"
	CategoryTenure        = "Employment tenure below 3 months"
	CategoryAge           = "Age band ineligible"
	CategoryIrregularCPF  = "Irregular taxpayer ID"
	CategoryManualReview  = "Manual/technical review"
	CategoryLeaveOrAbsent = "Possui Alertas - Férias ou afastamento"
)

// ReasonRule maps reasons containing a substring onto a category.
type ReasonRule struct {
	Contains string `json:"contains"`
	Category string `json:"category"`
}

// DefaultReasonRules is the ordered rule list; the first match wins.
func DefaultReasonRules() []ReasonRule {
	return []ReasonRule{
		{Contains: "Valor margem rejeitado", Category: CategoryNoMargin},
		{Contains: "Faixa de Renda", Category: CategoryIncome},
		{Contains: "Tempo de Emprego", Category: CategoryTenure},
		{Contains: "etaria", Category: CategoryAge},
		{Contains: "CPF Nao Esta Regular", Category: CategoryIrregularCPF},
	}
}

// DefaultRadar is the watchlist of critical categories.
func DefaultRadar() []string {
	return []string{CategoryTenure, CategoryNoMargin, CategoryLeaveOrAbsent, CategoryIrregularCPF, CategoryIncome}
}

// Placeholder reasons, compared upper-cased.
var placeholderReasons = set("NAN", "#N/A", "", "NONE", "0")

// ReasonNormalizer maps free-text rejection reasons onto categories.
type ReasonNormalizer struct {
	Rules []ReasonRule
}

// NewReasonNormalizer uses rules when given, the defaults otherwise.
func NewReasonNormalizer(rules []ReasonRule) ReasonNormalizer {
	if len(rules) == 0 {
		rules = DefaultReasonRules()
	}
	return ReasonNormalizer{Rules: rules}
}

// Normalize returns the category of a reason: the first rule whose substring
// occurs in it, then the manual review bucket for placeholders, otherwise the
// trimmed reason itself.
func (n ReasonNormalizer) Normalize(reason string) string {
	t := strings.TrimSpace(reason)
	rules := n.Rules
	if rules == nil {
		rules = DefaultReasonRules()
	}
	for _, rule := range rules {
		if strings.Contains(t, rule.Contains) {
			return rule.Category
		}
	}
	if _, ok := placeholderReasons[strings.ToUpper(t)]; ok {
		return CategoryManualReview
	}
	return t
}

// ReasonCount is the number of rejections in one category.
type ReasonCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CountReasons counts the categories of rejected records, most frequent
// first; ties keep first-encountered order. Records not in REJECTED are ignored.
func CountReasons(records []dataset.Record, n ReasonNormalizer) []ReasonCount {
	index := map[string]int{}
	var out []ReasonCount
	for _, r := range records {
		if !Classify(r).Rejected {
			continue
		}
		c := n.Normalize(r.RejectionReason)
		i, ok := index[c]
		if !ok {
			i = len(out)
			index[c] = i
			out = append(out, ReasonCount{Category: c})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Radar projects counts onto a fixed watchlist, zero-filling absent categories.
func Radar(counts []ReasonCount, watchlist []string) []ReasonCount {
	byCat := make(map[string]int, len(counts))
	for _, c := range counts {
		byCat[c.Category] = c.Count
	}
	out := make([]ReasonCount, 0, len(watchlist))
	for _, w := range watchlist {
		out = append(out, ReasonCount{Category: w, Count: byCat[w]})
	}
	return out
}

// RejectedRow is a drill-down line for a rejected proposal.
type RejectedRow struct {
	Row               int    `json:"row"`
	Date              string `json:"date"`
	Agent             string `json:"agent"`
	AnalysisStatus    string `json:"analysis_status"`
	ContractStatus    string `json:"contract_status"`
	Description       string `json:"description,omitempty"`
	Reason            string `json:"reason"`
	Category          string `json:"category"`
	ClientID          string `json:"client_id,omitempty"`
	EmployerHeadcount int    `json:"employer_headcount,omitempty"`
}

// RejectedDetails lists the rejected records with their normalized category.
// Dates use the dd/mm/yyyy display format.
func RejectedDetails(records []dataset.Record, n ReasonNormalizer) []RejectedRow {
	var out []RejectedRow
	for _, r := range records {
		if !Classify(r).Rejected {
			continue
		}
		out = append(out, RejectedRow{
			Row:               r.Row,
			Date:              displayDate(r.CreatedAt),
			Agent:             r.AgentID,
			AnalysisStatus:    r.AnalysisStatus,
			ContractStatus:    r.ContractStatus,
			Description:       r.ContractDescription,
			Reason:            r.RejectionReason,
			Category:          n.Normalize(r.RejectionReason),
			ClientID:          r.ClientID,
			EmployerHeadcount: r.EmployerHeadcount,
		})
	}
	return out
}

// InCategory keeps the rows of one category.
func InCategory(rows []RejectedRow, category string) []RejectedRow {
	var out []RejectedRow
	for _, r := range rows {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// RejectionSummary groups the reason counts, the radar and the clients
// rejected for employment tenure (a follow-up opportunity list).
type RejectionSummary struct {
	Counts        []ReasonCount `json:"counts"`
	Radar         []ReasonCount `json:"radar"`
	Total         int           `json:"total"`
	TenureClients []RejectedRow `json:"tenure_clients"`
	Details       []RejectedRow `json:"details,omitempty"`
	NoData        bool          `json:"no_data"`
}

// SummarizeRejections builds the rejection view of a population.
func SummarizeRejections(records []dataset.Record, n ReasonNormalizer, watchlist []string, withDetails bool) RejectionSummary {
	if len(watchlist) == 0 {
		watchlist = DefaultRadar()
	}
	details := RejectedDetails(records, n)
	out := RejectionSummary{
		Counts:        CountReasons(records, n),
		Total:         len(details),
		TenureClients: InCategory(details, CategoryTenure),
		NoData:        len(details) == 0,
	}
	out.Radar = Radar(out.Counts, watchlist)
	if withDetails {
		out.Details = details
	}
	return out
}
