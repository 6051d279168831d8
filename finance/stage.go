/*
stage.go - Project lifecycle stages and the stage fee table

PURPOSE:
  Projects move through the COA (Council of Architecture, India) delivery
  lifecycle. Each stage carries a fixed percentage of the total fee that is
  invoiced when the stage is billed. The stage-to-percentage mapping is
  ordered, immutable configuration - not user data.

INVARIANT:
  Stage fee percentages across a project's lifecycle must not exceed 100% in
  total. This is validated when a table is constructed; the shipped default
  sums to exactly 100.

SEE ALSO:
  - invoice.go: multiplies the fee percentage against the project fee
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECT STAGE - ordered delivery lifecycle
// =============================================================================

type ProjectStage string

const (
	StageConcept      ProjectStage = "CONCEPT"
	StagePrelim       ProjectStage = "PRELIM"
	StageStatutory    ProjectStage = "STATUTORY"
	StageTender       ProjectStage = "TENDER"
	StageContract     ProjectStage = "CONTRACT"
	StageConstruction ProjectStage = "CONSTRUCTION"
	StageCompletion   ProjectStage = "COMPLETION"
)

// StageOrder is the canonical lifecycle ordering. Phase numbers follow it.
var StageOrder = []ProjectStage{
	StageConcept,
	StagePrelim,
	StageStatutory,
	StageTender,
	StageContract,
	StageConstruction,
	StageCompletion,
}

var stageNames = map[ProjectStage]string{
	StageConcept:      "Concept Design",
	StagePrelim:       "Preliminary Design",
	StageStatutory:    "Statutory Approvals",
	StageTender:       "Working Drawings & Tender",
	StageContract:     "Contract Award",
	StageConstruction: "Construction",
	StageCompletion:   "Completion & Handover",
}

// Ordinal returns the stage's position in the lifecycle, or -1 if unknown.
func (s ProjectStage) Ordinal() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s ProjectStage) Valid() bool { return s.Ordinal() >= 0 }

func (s ProjectStage) DisplayName() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return string(s)
}

// Terminal stages deactivate the project on entry.
func (s ProjectStage) IsTerminal() bool { return s == StageCompletion }

// ValidateTransition rejects backward stage moves unless explicitly
// overridden. Forward jumps are allowed (stages can be skipped).
func ValidateTransition(current, next ProjectStage, allowBackward bool) error {
	if !next.Valid() {
		return &ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", next)}
	}
	if !allowBackward && current.Valid() && next.Ordinal() < current.Ordinal() {
		return &ValidationError{
			Field:  "stage",
			Reason: fmt.Sprintf("cannot move backwards from %s to %s without override", current, next),
		}
	}
	return nil
}

// =============================================================================
// STAGE FEE TABLE - fixed invoice percentages per stage
// =============================================================================

// StageFeeTable maps each lifecycle stage to the percentage of the total fee
// invoiced for it. Keys are stages, values are percentages (0-100].
type StageFeeTable map[ProjectStage]decimal.Decimal

var hundred = decimal.NewFromInt(100)

// DefaultStageFees is the shipped COA fee split. Sums to exactly 100.
func DefaultStageFees() StageFeeTable {
	return StageFeeTable{
		StageConcept:      decimal.NewFromInt(10),
		StagePrelim:       decimal.NewFromInt(15),
		StageStatutory:    decimal.NewFromInt(10),
		StageTender:       decimal.NewFromInt(20),
		StageContract:     decimal.NewFromInt(5),
		StageConstruction: decimal.NewFromInt(30),
		StageCompletion:   decimal.NewFromInt(10),
	}
}

// Validate checks the billing contract invariants: every key is a known
// stage, every percentage is in (0, 100], and the total does not exceed 100.
func (t StageFeeTable) Validate() error {
	total := decimal.Zero
	for stage, pct := range t {
		if !stage.Valid() {
			return &ValidationError{Field: "stage_fees", Reason: fmt.Sprintf("unknown stage %q", stage)}
		}
		if !pct.IsPositive() || pct.GreaterThan(hundred) {
			return &ValidationError{
				Field:  "stage_fees",
				Reason: fmt.Sprintf("fee for %s must be in (0, 100], got %s", stage, pct),
			}
		}
		total = total.Add(pct)
	}
	if total.GreaterThan(hundred) {
		return &ValidationError{
			Field:  "stage_fees",
			Reason: fmt.Sprintf("stage fees sum to %s%%, exceeding 100%%", total),
		}
	}
	return nil
}

// FeePercent returns the fee percentage for a stage.
func (t StageFeeTable) FeePercent(stage ProjectStage) (decimal.Decimal, bool) {
	pct, ok := t[stage]
	return pct, ok
}
