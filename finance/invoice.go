/*
invoice.go - Stage Invoice Calculator and invoice line items

PURPOSE:
  Produces the standard (stage-based) invoice line item:

    unitPrice = totalFee * stageFeePercent / 100   (half-up, 2 places)
    quantity  = 1
    amount    = unitPrice

  and fixes issueDate = today, dueDate = issueDate + 15 days for standard
  mode. Manual mode keeps freely editable line items with the conventional
  +30 day due date.

MODES AS TYPES:
  Standard and manual line items are distinct types rather than one mutable
  struct with conditionally-locked fields: the read-only nature of
  stage-derived values is enforced by the type system, not by UI convention.
  Switching an invoice draft between modes resets the mode-dependent fields
  so stale computed amounts can never leak across.

SEE ALSO:
  - stage.go: the fixed fee table this calculator reads
*/
package finance

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE MODES & LINE ITEMS
// =============================================================================

type InvoiceMode string

const (
	ModeStandard InvoiceMode = "standard" // stage-derived, read-only line
	ModeManual   InvoiceMode = "manual"   // freely editable lines
)

// LineItemType categorizes manual line items.
type LineItemType string

const (
	ItemFixedPrice LineItemType = "FIXED_PRICE"
	ItemTimeBased  LineItemType = "TIME_BASED"
	ItemExpense    LineItemType = "EXPENSE"
	ItemDiscount   LineItemType = "DISCOUNT"
)

// StandardLineItem is the stage-derived invoice line. All fields are set by
// the calculator; there are no setters.
type StandardLineItem struct {
	Description string
	Stage       ProjectStage
	FeePercent  decimal.Decimal
	Quantity    decimal.Decimal // always 1
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// ManualLineItem is a freely editable invoice line.
type ManualLineItem struct {
	Description string
	Type        LineItemType
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Amount is recomputed from quantity and unit price on every read, so edits
// can never leave a stale total behind.
func (m ManualLineItem) Amount() decimal.Decimal {
	return m.Quantity.Mul(m.UnitPrice).Round(2)
}

// =============================================================================
// STAGE INVOICE CALCULATOR
// =============================================================================

const (
	standardDueDays = 15
	manualDueDays   = 30
)

type StageInvoiceCalculator struct {
	Fees StageFeeTable

	// Now is injectable for tests; defaults to Today.
	Now func() Date
}

func NewStageInvoiceCalculator(fees StageFeeTable) (*StageInvoiceCalculator, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	return &StageInvoiceCalculator{Fees: fees, Now: Today}, nil
}

func (c *StageInvoiceCalculator) today() Date {
	if c.Now != nil {
		return c.Now()
	}
	return Today()
}

// ComputeLine derives the standard line item for billing a lifecycle stage
// of a project. The budget basis is the project's total fee.
func (c *StageInvoiceCalculator) ComputeLine(project Project, stage ProjectStage) (*StandardLineItem, error) {
	pct, ok := c.Fees.FeePercent(stage)
	if !ok {
		return nil, &ValidationError{Field: "stage", Reason: fmt.Sprintf("no fee configured for stage %q", stage)}
	}

	unitPrice := project.TotalFee.Mul(pct).Div(hundred).Round(2)

	return &StandardLineItem{
		Description: fmt.Sprintf("%s - professional fees (%s%% of project fee)", stage.DisplayName(), pct),
		Stage:       stage,
		FeePercent:  pct,
		Quantity:    one,
		UnitPrice:   unitPrice,
		Amount:      unitPrice,
	}, nil
}

// =============================================================================
// INVOICE DRAFT - tagged by mode
// =============================================================================

// StandardInvoice is a complete stage-based invoice draft.
type StandardInvoice struct {
	Number    string
	ProjectID ProjectID
	Stage     ProjectStage
	Line      StandardLineItem
	IssueDate Date
	DueDate   Date
}

// StandardInvoice builds the full standard-mode draft: computed line,
// issueDate fixed to today, dueDate fixed to issueDate + 15 days. These
// dates are a convention of standard mode, not negotiable inputs.
func (c *StageInvoiceCalculator) StandardInvoice(project Project, stage ProjectStage) (*StandardInvoice, error) {
	line, err := c.ComputeLine(project, stage)
	if err != nil {
		return nil, err
	}

	issue := c.today()
	return &StandardInvoice{
		Number:    NewInvoiceNumber(issue.Year()),
		ProjectID: project.ID,
		Stage:     stage,
		Line:      *line,
		IssueDate: issue,
		DueDate:   issue.AddDays(standardDueDays),
	}, nil
}

// InvoiceDraft holds an in-progress invoice in exactly one mode. The unused
// branch is always nil/empty; SwitchMode clears dependent fields rather than
// carrying stale computed amounts across.
type InvoiceDraft struct {
	Mode      InvoiceMode
	Standard  *StandardInvoice
	Manual    []ManualLineItem
	IssueDate Date
	DueDate   Date
}

// SwitchMode resets the draft into the other mode. Standard-derived values
// never survive a switch to manual, and manual lines never survive a switch
// to standard.
func (d *InvoiceDraft) SwitchMode(mode InvoiceMode, today Date) error {
	if mode != ModeStandard && mode != ModeManual {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown invoice mode %q", mode)}
	}
	if mode == d.Mode {
		return nil
	}

	d.Mode = mode
	d.Standard = nil
	d.Manual = nil
	d.IssueDate = today

	switch mode {
	case ModeStandard:
		d.DueDate = today.AddDays(standardDueDays)
	case ModeManual:
		d.DueDate = today.AddDays(manualDueDays)
	}
	return nil
}

// ManualTotal sums the manual lines. Zero for standard drafts.
func (d *InvoiceDraft) ManualTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Manual {
		total = total.Add(line.Amount())
	}
	return total
}

// NewInvoiceNumber generates an invoice number like INV-2026-1A2B3C4D.
func NewInvoiceNumber(year int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", year, suffix)
}
