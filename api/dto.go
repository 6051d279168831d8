/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY ON THE WIRE:
  All monetary fields are JSON strings (shopspring/decimal marshals to a
  quoted number). Clients must not round-trip money through floats.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/studiobooks/finance-engine/finance"
)

// =============================================================================
// PROJECT & PHASE
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	ClientName         string          `json:"client_name,omitempty"`
	TotalFee           decimal.Decimal `json:"total_fee"`
	TargetProfitMargin decimal.Decimal `json:"target_profit_margin"`
	Stage              string          `json:"stage"`
	Active             bool            `json:"active"`
	CreatedAt          string          `json:"created_at,omitempty"`
}

// CreateProjectRequest creates a project and one phase per selected stage.
type CreateProjectRequest struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	ClientName         string   `json:"client_name"`
	TotalFee           string   `json:"total_fee"`
	TargetProfitMargin string   `json:"target_profit_margin,omitempty"`
	Stages             []string `json:"stages,omitempty"`
}

// UpdateStageRequest advances (or with override, rewinds) a project's stage.
type UpdateStageRequest struct {
	Stage         string `json:"stage"`
	AllowBackward bool   `json:"allow_backward,omitempty"`
}

// PhaseDTO represents a phase in API responses.
type PhaseDTO struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	PhaseNumber int     `json:"phase_number"`
	Stage       string  `json:"stage"`
	BudgetShare *string `json:"budget_share,omitempty"`
}

// =============================================================================
// COMPENSATION & RATES
// =============================================================================

// PutProfileRequest upserts a user's compensation profile.
type PutProfileRequest struct {
	MonthlySalary        string `json:"monthly_salary"`
	TypicalHoursPerMonth int    `json:"typical_hours_per_month,omitempty"`
	OverheadMultiplier   string `json:"overhead_multiplier,omitempty"`
}

// RateDTO is the resolved billing rate for a user.
type RateDTO struct {
	UserID               string          `json:"user_id"`
	MonthlySalary        decimal.Decimal `json:"monthly_salary"`
	TypicalHoursPerMonth int             `json:"typical_hours_per_month"`
	OverheadMultiplier   decimal.Decimal `json:"overhead_multiplier"`
	HourlyRate           decimal.Decimal `json:"hourly_rate"`
}

// =============================================================================
// ASSIGNMENTS & UTILIZATION
// =============================================================================

// CreateAssignmentRequest assigns a user to a phase.
type CreateAssignmentRequest struct {
	UserID       string `json:"user_id"`
	PhaseID      string `json:"phase_id"`
	PlannedHours int    `json:"planned_hours"`
	StartDate    string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      string `json:"end_date,omitempty"`
}

// AssignmentDTO represents a resource assignment in API responses.
type AssignmentDTO struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	PhaseID      string          `json:"phase_id"`
	ProjectID    string          `json:"project_id"`
	PlannedHours int             `json:"planned_hours"`
	BillingRate  decimal.Decimal `json:"billing_rate"`
	StartDate    *string         `json:"start_date,omitempty"`
	EndDate      *string         `json:"end_date,omitempty"`
}

// CreateAssignmentResponse carries the stored assignment plus the advisory
// utilization warning. The warning never blocks creation.
type CreateAssignmentResponse struct {
	Assignment  AssignmentDTO   `json:"assignment"`
	Utilization *UtilizationDTO `json:"utilization,omitempty"`
}

// UtilizationDTO is the weekly capacity check outcome.
type UtilizationDTO struct {
	UserID            string `json:"user_id"`
	WeekStart         string `json:"week_start"`
	WeekEnd           string `json:"week_end"`
	TotalHoursPlanned int    `json:"total_hours_planned"`
	ProposedHours     int    `json:"proposed_hours"`
	IsOverUtilized    bool   `json:"is_over_utilized"`
	HoursOverLimit    int    `json:"hours_over_limit"`
	WeeklyCapacity    int    `json:"weekly_capacity"`
}

// =============================================================================
// BURN
// =============================================================================

// BurnDTO is the derived budget position of a project or phase.
type BurnDTO struct {
	ProjectID        string          `json:"project_id"`
	PhaseID          *string         `json:"phase_id,omitempty"`
	TotalFee         decimal.Decimal `json:"total_fee"`
	TargetMargin     decimal.Decimal `json:"target_profit_margin"`
	ProductionBudget decimal.Decimal `json:"production_budget"`
	CurrentBurn      decimal.Decimal `json:"current_burn"`
	BurnPercentage   decimal.Decimal `json:"burn_percentage"`
	Status           string          `json:"status"`
}

// =============================================================================
// INVOICES
// =============================================================================

// StandardInvoiceRequest computes the stage-based invoice for a project.
type StandardInvoiceRequest struct {
	ProjectID string `json:"project_id"`
	Stage     string `json:"stage,omitempty"` // defaults to the project's current stage
}

// LineItemDTO is one invoice line in API responses.
type LineItemDTO struct {
	Description string          `json:"description"`
	Type        string          `json:"type,omitempty"`
	Stage       string          `json:"stage,omitempty"`
	FeePercent  decimal.Decimal `json:"fee_percent,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// StandardInvoiceDTO is the computed stage invoice draft.
type StandardInvoiceDTO struct {
	Number    string          `json:"number"`
	ProjectID string          `json:"project_id"`
	Stage     string          `json:"stage"`
	Line      LineItemDTO     `json:"line"`
	Total     decimal.Decimal `json:"total"`
	IssueDate string          `json:"issue_date"`
	DueDate   string          `json:"due_date"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// ComputePayslipRequest prorates a user's salary over a pay period.
type ComputePayslipRequest struct {
	UserID          string `json:"user_id"`
	MonthlySalary   string `json:"monthly_salary,omitempty"` // defaults to the stored profile
	PeriodStart     string `json:"period_start"`             // YYYY-MM-DD
	PeriodEnd       string `json:"period_end"`
	Allowances      string `json:"allowances,omitempty"`
	Bonuses         string `json:"bonuses,omitempty"`
	OtherDeductions string `json:"other_deductions,omitempty"`
}

// PayslipDTO is the derived pay breakdown for one period.
type PayslipDTO struct {
	PayslipNumber    string          `json:"payslip_number"`
	UserID           string          `json:"user_id"`
	PeriodStart      string          `json:"period_start"`
	PeriodEnd        string          `json:"period_end"`
	DaysWorked       int             `json:"days_worked"`
	MonthWorkingDays int             `json:"month_working_days"`
	DailySalary      decimal.Decimal `json:"daily_salary"`
	GrossSalary      decimal.Decimal `json:"gross_salary"`
	Allowances       decimal.Decimal `json:"allowances"`
	Bonuses          decimal.Decimal `json:"bonuses"`
	OtherDeductions  decimal.Decimal `json:"other_deductions"`
	NetSalary        decimal.Decimal `json:"net_salary"`
}

// =============================================================================
// MISC
// =============================================================================

// StageDTO describes one lifecycle stage and its standard fee percent.
type StageDTO struct {
	Stage       string          `json:"stage"`
	DisplayName string          `json:"display_name"`
	Ordinal     int             `json:"ordinal"`
	FeePercent  decimal.Decimal `json:"fee_percent"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAssignmentDTO(a finance.ResourceAssignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:           string(a.ID),
		UserID:       string(a.UserID),
		PhaseID:      string(a.PhaseID),
		ProjectID:    string(a.ProjectID),
		PlannedHours: a.PlannedHours,
		BillingRate:  a.BillingRate,
	}
	if a.StartDate != nil {
		s := a.StartDate.String()
		dto.StartDate = &s
	}
	if a.EndDate != nil {
		s := a.EndDate.String()
		dto.EndDate = &s
	}
	return dto
}

func toUtilizationDTO(u finance.UtilizationResult) UtilizationDTO {
	return UtilizationDTO{
		UserID:            string(u.UserID),
		WeekStart:         u.WeekStart.String(),
		WeekEnd:           u.WeekEnd.String(),
		TotalHoursPlanned: u.TotalHoursPlanned,
		ProposedHours:     u.ProposedHours,
		IsOverUtilized:    u.IsOverUtilized,
		HoursOverLimit:    u.HoursOverLimit,
		WeeklyCapacity:    finance.WeeklyCapacityHours,
	}
}

func toBurnDTO(s finance.BurnSnapshot) BurnDTO {
	dto := BurnDTO{
		ProjectID:        string(s.ProjectID),
		TotalFee:         s.TotalFee,
		TargetMargin:     s.TargetMargin,
		ProductionBudget: s.ProductionBudget,
		CurrentBurn:      s.CurrentBurn,
		BurnPercentage:   s.BurnPercentage,
		Status:           string(s.Status),
	}
	if s.PhaseID != nil {
		id := string(*s.PhaseID)
		dto.PhaseID = &id
	}
	return dto
}

func toProjectDTO(p finance.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:                 string(p.ID),
		Name:               p.Name,
		ClientName:         p.ClientName,
		TotalFee:           p.TotalFee,
		TargetProfitMargin: p.TargetProfitMargin,
		Stage:              string(p.Stage),
		Active:             p.Active,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toPhaseDTO(p finance.Phase) PhaseDTO {
	dto := PhaseDTO{
		ID:          string(p.ID),
		ProjectID:   string(p.ProjectID),
		PhaseNumber: p.PhaseNumber,
		Stage:       string(p.Stage),
	}
	if p.BudgetShare != nil {
		s := p.BudgetShare.String()
		dto.BudgetShare = &s
	}
	return dto
}

func toPayslipDTO(c finance.PayslipComputation) PayslipDTO {
	return PayslipDTO{
		PayslipNumber:    c.PayslipNumber,
		UserID:           string(c.UserID),
		PeriodStart:      c.PeriodStart.String(),
		PeriodEnd:        c.PeriodEnd.String(),
		DaysWorked:       c.DaysWorked,
		MonthWorkingDays: c.MonthWorkingDays,
		DailySalary:      c.DailySalary,
		GrossSalary:      c.GrossSalary,
		Allowances:       c.Allowances,
		Bonuses:          c.Bonuses,
		OtherDeductions:  c.OtherDeductions,
		NetSalary:        c.NetSalary,
	}
}

func toStandardInvoiceDTO(inv finance.StandardInvoice) StandardInvoiceDTO {
	return StandardInvoiceDTO{
		Number:    inv.Number,
		ProjectID: string(inv.ProjectID),
		Stage:     string(inv.Stage),
		Line: LineItemDTO{
			Description: inv.Line.Description,
			Stage:       string(inv.Line.Stage),
			FeePercent:  inv.Line.FeePercent,
			Quantity:    inv.Line.Quantity,
			UnitPrice:   inv.Line.UnitPrice,
			Amount:      inv.Line.Amount,
		},
		Total:     inv.Line.Amount,
		IssueDate: inv.IssueDate.String(),
		DueDate:   inv.DueDate.String(),
	}
}
