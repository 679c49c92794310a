package insights

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/topaplus/commandcenter/internal/dataset"
	"github.com/topaplus/commandcenter/pkg/brl"
)

// StageTotal is the count and ticket sum of one funnel stage.
type StageTotal struct {
	Stage  Stage           `json:"stage"`
	Count  int             `json:"count"`
	Sum    decimal.Decimal `json:"sum"`
	SumBRL string          `json:"sum_brl"`
}

// FunnelSummary is the headline KPI set of a filtered population.
type FunnelSummary struct {
	Stages             []StageTotal    `json:"stages"`
	PaidMean           decimal.Decimal `json:"paid_mean"`
	PaidMeanBRL        string          `json:"paid_mean_brl"`
	FinalConversion    float64         `json:"final_conversion"`
	FinalConversionPct string          `json:"final_conversion_pct"`
	Utilization        float64         `json:"utilization"`
	UtilizationPct     string          `json:"utilization_pct"`
	Steps              []StepMetric    `json:"steps"`
	Bottleneck         Stage           `json:"bottleneck,omitempty"`
	NoData             bool            `json:"no_data"`
}

// Summarize computes per-stage totals, the paid mean ticket and the two
// headline ratios: final conversion (paid/simulated) and utilization
// (approved/eligible), plus the step conversions along the funnel path.
// Empty denominators yield zero.
func Summarize(st Stages) FunnelSummary {
	out := FunnelSummary{NoData: len(st.Simulated) == 0}
	for _, stage := range AllStages {
		recs := st.Get(stage)
		sum := SumTickets(recs)
		out.Stages = append(out.Stages, StageTotal{Stage: stage, Count: len(recs), Sum: sum, SumBRL: brl.Format(sum)})
	}
	out.PaidMean = MeanTicket(st.Paid)
	out.PaidMeanBRL = brl.Format(out.PaidMean)
	out.FinalConversion = Ratio(len(st.Paid), len(st.Simulated))
	out.FinalConversionPct = Percent(out.FinalConversion, 2)
	out.Utilization = Ratio(len(st.Approved), len(st.Eligible))
	out.UtilizationPct = Percent(out.Utilization, 1)
	out.Steps, out.Bottleneck = StepConversions(st)
	return out
}

// Stage returns the totals of one stage from the summary.
func (s FunnelSummary) Stage(stage Stage) StageTotal {
	for _, t := range s.Stages {
		if t.Stage == stage {
			return t
		}
	}
	return StageTotal{Stage: stage, SumBRL: brl.Format(decimal.Zero)}
}

// SumTickets adds the ticket amounts of records.
func SumTickets(records []dataset.Record) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Ticket)
	}
	return sum
}

// MeanTicket is the average ticket of records, zero when there are none.
func MeanTicket(records []dataset.Record) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	return SumTickets(records).Div(decimal.NewFromInt(int64(len(records))))
}

// Ratio divides two counts, zero when den is zero.
func Ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Percent renders a ratio as a percentage with the given decimals ("12.34%").
func Percent(ratio float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, ratio*100)
}
