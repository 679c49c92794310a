package insights

import (
	"fmt"
	"strings"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// Status codes as they appear in the proposal export.
const (
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusDisbursed = "DISBURSED"
)

// Analysis codes that mark a proposal as passive or void (never analyzed).
var excludedAnalysis = set(
	"NOT_ANALIZED",
	"NOT_ANALYZED",
	"FAILED_DATAPREV",
	dataset.StatusEmpty,
	"CREATED",
	"TOKEN_SENT",
)

// Analysis codes reviewed without approval (ineligible or no data).
var analyzedBase = set(
	"NOT_AUTHORIZED_DATAPREV",
	"SEM_DADOS_DATAPREV",
	"CPF_EMPLOYER",
	"NO_AVAILABLE_MARGIN",
)

// Contract codes meaning a contract was produced, whatever its outcome.
var generatedContract = set(
	"CANCELLED_BY_USER",
	"EXPIRED",
	"CONTRACT_GENERATED",
	StatusDisbursed,
)

func set(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

// Flags are the independent funnel tests for one record. No flag is derived
// from another; inconsistent source rows (Paid but not Approved) stay visible.
type Flags struct {
	Eligible  bool
	Analyzed  bool
	Approved  bool
	Generated bool
	Paid      bool
	Rejected  bool
}

// Classify evaluates the funnel tests against the normalized status pair.
func Classify(r dataset.Record) Flags {
	an := dataset.NormalizeStatus(r.AnalysisStatus)
	ct := dataset.NormalizeStatus(r.ContractStatus)
	_, excluded := excludedAnalysis[an]
	_, base := analyzedBase[an]
	_, generated := generatedContract[ct]
	return Flags{
		Eligible:  !excluded,
		Analyzed:  base || an == StatusApproved,
		Approved:  an == StatusApproved,
		Generated: generated,
		Paid:      ct == StatusDisbursed,
		Rejected:  an == StatusRejected,
	}
}

// IsPaid reports whether the contract was disbursed.
func IsPaid(r dataset.Record) bool {
	return dataset.NormalizeStatus(r.ContractStatus) == StatusDisbursed
}

// Stage names a funnel partition.
type Stage string

const (
	StageSimulated Stage = "simulated"
	StageEligible  Stage = "eligible"
	StageExcluded  Stage = "excluded"
	StageAnalyzed  Stage = "analyzed"
	StageApproved  Stage = "approved"
	StageGenerated Stage = "generated"
	StagePaid      Stage = "paid"
	StageRejected  Stage = "rejected"
)

// AllStages lists the partitions in funnel order.
var AllStages = []Stage{
	StageSimulated,
	StageEligible,
	StageExcluded,
	StageAnalyzed,
	StageApproved,
	StageGenerated,
	StagePaid,
	StageRejected,
}

// ParseStage accepts a stage name, case-insensitively.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStages {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, s)
}

// ClassifyOptions carries the configurable readings of the funnel.
type ClassifyOptions struct {
	// GeneratedExcludesPaid drops DISBURSED rows from Generated. Off by
	// default: Generated counts every produced contract, Paid included.
	GeneratedExcludesPaid bool
}

// Stages holds the record subsets of each partition.
type Stages struct {
	Simulated []dataset.Record
	Eligible  []dataset.Record
	Excluded  []dataset.Record
	Analyzed  []dataset.Record
	Approved  []dataset.Record
	Generated []dataset.Record
	Paid      []dataset.Record
	Rejected  []dataset.Record
}

// Partition splits records into funnel stages. Eligible and Excluded are
// complementary over Simulated.
func Partition(records []dataset.Record, opts ClassifyOptions) Stages {
	st := Stages{Simulated: records}
	for _, r := range records {
		f := Classify(r)
		if f.Eligible {
			st.Eligible = append(st.Eligible, r)
		} else {
			st.Excluded = append(st.Excluded, r)
		}
		if f.Analyzed {
			st.Analyzed = append(st.Analyzed, r)
		}
		if f.Approved {
			st.Approved = append(st.Approved, r)
		}
		if f.Generated && !(opts.GeneratedExcludesPaid && f.Paid) {
			st.Generated = append(st.Generated, r)
		}
		if f.Paid {
			st.Paid = append(st.Paid, r)
		}
		if f.Rejected {
			st.Rejected = append(st.Rejected, r)
		}
	}
	return st
}

// Get returns the subset for a stage.
func (s Stages) Get(stage Stage) []dataset.Record {
	switch stage {
	case StageSimulated:
		return s.Simulated
	case StageEligible:
		return s.Eligible
	case StageExcluded:
		return s.Excluded
	case StageAnalyzed:
		return s.Analyzed
	case StageApproved:
		return s.Approved
	case StageGenerated:
		return s.Generated
	case StagePaid:
		return s.Paid
	case StageRejected:
		return s.Rejected
	}
	return nil
}
