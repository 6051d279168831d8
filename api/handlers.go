/*
handlers.go - HTTP API handlers for the financial planning engine

PURPOSE:
  Exposes the finance engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Projects:
    GET    /api/projects                    List all projects
    POST   /api/projects                    Create project (+ one phase per stage)
    GET    /api/projects/{id}               Get project details
    POST   /api/projects/{id}/stage         Advance the lifecycle stage
    GET    /api/projects/{id}/phases        List phases
    GET    /api/projects/{id}/resources     List resource assignments
    GET    /api/projects/{id}/burn-rate     Burn snapshot (?phase_id= scopes)

  Assignments:
    POST   /api/assignments                 Assign user to phase (rate snapshot)
    DELETE /api/assignments                 Remove by ?user_id=&phase_id=

  Utilization:
    GET    /api/utilization                 ?user_id=&hours=&week_of=

  Compensation:
    PUT    /api/users/{id}/profile          Upsert compensation profile
    GET    /api/users/{id}/rate             Resolved hourly billing rate

  Invoicing & payroll:
    GET    /api/stages                      Stage fee schedule
    POST   /api/invoices/standard           Compute stage invoice
    POST   /api/payslips/compute            Prorate a pay period

ERROR HANDLING:
  Domain errors map onto HTTP status via errors.Is against the finance
  sentinels:
  - 400: finance.ErrValidation
  - 404: finance.ErrNotFound
  - 409: finance.ErrConflict
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studiobooks/finance-engine/finance"
	"github.com/studiobooks/finance-engine/metrics"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence surface the handlers need. Satisfied by
// *sqlite.Store.
type Store interface {
	finance.AssignmentStore
	finance.Directory

	SaveProject(ctx context.Context, p finance.Project) error
	ListProjects(ctx context.Context) ([]finance.Project, error)
	SavePhase(ctx context.Context, p finance.Phase) error
	ListPhases(ctx context.Context, projectID finance.ProjectID) ([]finance.Phase, error)
	SaveProfile(ctx context.Context, p finance.CompensationProfile) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       Store
	Ledger      *finance.Ledger
	Burn        *finance.BurnCalculator
	Utilization *finance.UtilizationChecker
	Invoices    *finance.StageInvoiceCalculator
}

// NewHandler wires the engine components around the given store.
func NewHandler(store Store) (*Handler, error) {
	ledger := finance.NewLedger(store, store)
	invoices, err := finance.NewStageInvoiceCalculator(finance.DefaultStageFees())
	if err != nil {
		return nil, err
	}
	return &Handler{
		Store:       store,
		Ledger:      ledger,
		Burn:        finance.NewBurnCalculator(ledger),
		Utilization: finance.NewUtilizationChecker(ledger),
		Invoices:    invoices,
	}, nil
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates a project and one phase per selected lifecycle
// stage. With no stages given, the full lifecycle is laid out.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	totalFee, err := decimal.NewFromString(req.TotalFee)
	if err != nil || totalFee.IsNegative() {
		writeError(w, http.StatusBadRequest, "total_fee must be a non-negative decimal", err)
		return
	}

	margin := finance.DefaultTargetProfitMargin
	if req.TargetProfitMargin != "" {
		margin, err = decimal.NewFromString(req.TargetProfitMargin)
		if err != nil || margin.IsNegative() || margin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			writeError(w, http.StatusBadRequest, "target_profit_margin must be a fraction in [0,1)", err)
			return
		}
	}

	stages := finance.StageOrder
	if len(req.Stages) > 0 {
		stages = make([]finance.ProjectStage, 0, len(req.Stages))
		for _, s := range req.Stages {
			stage := finance.ProjectStage(s)
			if !stage.Valid() {
				writeError(w, http.StatusBadRequest, "unknown stage: "+s, nil)
				return
			}
			stages = append(stages, stage)
		}
	}

	id := finance.ProjectID(req.ID)
	if id == "" {
		id = finance.ProjectID(uuid.NewString())
	}

	project := finance.Project{
		ID:                 id,
		Name:               req.Name,
		ClientName:         req.ClientName,
		TotalFee:           totalFee,
		TargetProfitMargin: margin,
		Stage:              stages[0],
		Active:             true,
		CreatedAt:          time.Now().UTC(),
	}

	ctx := r.Context()
	if err := h.Store.SaveProject(ctx, project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}

	for i, stage := range stages {
		phase := finance.Phase{
			ID:          finance.PhaseID(uuid.NewString()),
			ProjectID:   project.ID,
			PhaseNumber: i + 1,
			Stage:       stage,
			CreatedAt:   project.CreatedAt,
		}
		if err := h.Store.SavePhase(ctx, phase); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save phase", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := finance.ProjectID(chi.URLParam(r, "id"))
	project, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*project))
}

// UpdateStage advances a project through its lifecycle. Backward moves
// require the explicit override flag. Reaching COMPLETION deactivates the
// project.
func (h *Handler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id := finance.ProjectID(chi.URLParam(r, "id"))

	var req UpdateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	project, err := h.Store.GetProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	next := finance.ProjectStage(req.Stage)
	if err := finance.ValidateTransition(project.Stage, next, req.AllowBackward); err != nil {
		writeDomainError(w, err)
		return
	}

	project.Stage = next
	if next.IsTerminal() {
		project.Active = false
	}

	if err := h.Store.SaveProject(ctx, *project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*project))
}

// ListProjectPhases returns a project's phases in lifecycle order.
func (h *Handler) ListProjectPhases(w http.ResponseWriter, r *http.Request) {
	id := finance.ProjectID(chi.URLParam(r, "id"))

	ctx := r.Context()
	project, err := h.Store.GetProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	phases, err := h.Store.ListPhases(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list phases", err)
		return
	}

	dtos := make([]PhaseDTO, len(phases))
	for i, p := range phases {
		dtos[i] = toPhaseDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListProjectResources returns all assignments across a project's phases.
func (h *Handler) ListProjectResources(w http.ResponseWriter, r *http.Request) {
	id := finance.ProjectID(chi.URLParam(r, "id"))

	assignments, err := h.Ledger.AssignmentsForProject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBurnRate returns the burn snapshot for a project, or for one phase
// when ?phase_id= is given.
func (h *Handler) GetBurnRate(w http.ResponseWriter, r *http.Request) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))

	var (
		snap *finance.BurnSnapshot
		err  error
	)
	if phaseID := r.URL.Query().Get("phase_id"); phaseID != "" {
		snap, err = h.Burn.PhaseBurn(r.Context(), projectID, finance.PhaseID(phaseID))
	} else {
		snap, err = h.Burn.ProjectBurn(r.Context(), projectID)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	pct, _ := snap.BurnPercentage.Float64()
	metrics.BurnStatusGauge.WithLabelValues(string(projectID)).Set(pct)

	writeJSON(w, http.StatusOK, toBurnDTO(*snap))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment assigns a user to a phase, snapshotting their billing
// rate. The response carries the utilization check for the assignment's
// start week; over-utilization is advisory and never blocks.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := finance.CreateAssignmentInput{
		UserID:       finance.UserID(req.UserID),
		PhaseID:      finance.PhaseID(req.PhaseID),
		PlannedHours: req.PlannedHours,
	}

	var err error
	if in.StartDate, err = parseOptionalDate(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD", err)
		return
	}
	if in.EndDate, err = parseOptionalDate(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD", err)
		return
	}

	ctx := r.Context()

	// Advisory check before the write so the warning reflects the week the
	// assignment starts in.
	weekOf := finance.Date{}
	if in.StartDate != nil {
		weekOf = *in.StartDate
	}
	util, utilErr := h.Utilization.Check(ctx, in.UserID, in.PlannedHours, weekOf)

	asg, err := h.Ledger.CreateAssignment(ctx, in)
	if err != nil {
		if errors.Is(err, finance.ErrConflict) {
			metrics.AssignmentConflicts.Inc()
		}
		writeDomainError(w, err)
		return
	}
	metrics.AssignmentsCreated.Inc()

	resp := CreateAssignmentResponse{Assignment: toAssignmentDTO(*asg)}
	if utilErr == nil && util != nil {
		dto := toUtilizationDTO(*util)
		resp.Utilization = &dto
		if util.IsOverUtilized {
			metrics.OverUtilizationWarnings.Inc()
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DeleteAssignment removes the assignment for ?user_id=&phase_id=.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	phaseID := r.URL.Query().Get("phase_id")
	if userID == "" || phaseID == "" {
		writeError(w, http.StatusBadRequest, "user_id and phase_id are required", nil)
		return
	}

	err := h.Ledger.RemoveAssignment(r.Context(), finance.UserID(userID), finance.PhaseID(phaseID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckUtilization answers the weekly capacity question without writing
// anything: GET /api/utilization?user_id=&hours=&week_of=.
func (h *Handler) CheckUtilization(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		var err error
		if hours, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "hours must be an integer", err)
			return
		}
	}

	weekOf := finance.Date{}
	if raw := r.URL.Query().Get("week_of"); raw != "" {
		d, err := finance.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week_of must be YYYY-MM-DD", err)
			return
		}
		weekOf = d
	}

	util, err := h.Utilization.Check(r.Context(), finance.UserID(userID), hours, weekOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if util.IsOverUtilized {
		metrics.OverUtilizationWarnings.Inc()
	}
	writeJSON(w, http.StatusOK, toUtilizationDTO(*util))
}

// =============================================================================
// COMPENSATION HANDLERS
// =============================================================================

// PutProfile upserts a user's compensation profile. Later assignments pick
// up the new rate; existing assignments keep their snapshot.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	userID := finance.UserID(chi.URLParam(r, "id"))

	var req PutProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	salary, err := decimal.NewFromString(req.MonthlySalary)
	if err != nil || salary.IsNegative() {
		writeError(w, http.StatusBadRequest, "monthly_salary must be a non-negative decimal", err)
		return
	}

	hours := req.TypicalHoursPerMonth
	if hours <= 0 {
		hours = finance.DefaultTypicalHoursPerMonth
	}

	mult := finance.DefaultOverheadMultiplier
	if req.OverheadMultiplier != "" {
		mult, err = decimal.NewFromString(req.OverheadMultiplier)
		if err != nil {
			writeError(w, http.StatusBadRequest, "overhead_multiplier must be a decimal", err)
			return
		}
	}

	profile := finance.CompensationProfile{
		UserID:               userID,
		MonthlySalary:        salary,
		TypicalHoursPerMonth: hours,
		OverheadMultiplier:   mult,
	}

	if err := h.Store.SaveProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile", err)
		return
	}

	writeJSON(w, http.StatusOK, RateDTO{
		UserID:               string(userID),
		MonthlySalary:        profile.MonthlySalary,
		TypicalHoursPerMonth: profile.TypicalHoursPerMonth,
		OverheadMultiplier:   profile.OverheadMultiplier,
		HourlyRate:           finance.ResolveRate(profile),
	})
}

// GetRate resolves the user's current hourly billing rate.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	userID := finance.UserID(chi.URLParam(r, "id"))

	profile, err := h.Store.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Compensation profile not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, RateDTO{
		UserID:               string(userID),
		MonthlySalary:        profile.MonthlySalary,
		TypicalHoursPerMonth: profile.TypicalHoursPerMonth,
		OverheadMultiplier:   profile.OverheadMultiplier,
		HourlyRate:           finance.ResolveRate(*profile),
	})
}

// =============================================================================
// INVOICE & PAYROLL HANDLERS
// =============================================================================

// ListStages returns the lifecycle stages with their standard fee percents.
func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	dtos := make([]StageDTO, 0, len(finance.StageOrder))
	for i, stage := range finance.StageOrder {
		pct, _ := h.Invoices.Fees.FeePercent(stage)
		dtos = append(dtos, StageDTO{
			Stage:       string(stage),
			DisplayName: stage.DisplayName(),
			Ordinal:     i,
			FeePercent:  pct,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ComputeStandardInvoice derives the stage-based invoice draft for a
// project. The stage defaults to the project's current one.
func (h *Handler) ComputeStandardInvoice(w http.ResponseWriter, r *http.Request) {
	var req StandardInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	project, err := h.Store.GetProject(r.Context(), finance.ProjectID(req.ProjectID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	stage := project.Stage
	if req.Stage != "" {
		stage = finance.ProjectStage(req.Stage)
	}

	inv, err := h.Invoices.StandardInvoice(*project, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStandardInvoiceDTO(*inv))
}

// ComputePayslip prorates a user's monthly salary over a pay period. The
// salary defaults to the stored compensation profile when omitted.
func (h *Handler) ComputePayslip(w http.ResponseWriter, r *http.Request) {
	var req ComputePayslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := finance.ParseDate(req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "period_start must be YYYY-MM-DD", err)
		return
	}
	end, err := finance.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "period_end must be YYYY-MM-DD", err)
		return
	}

	var salary decimal.Decimal
	if req.MonthlySalary != "" {
		salary, err = decimal.NewFromString(req.MonthlySalary)
		if err != nil {
			writeError(w, http.StatusBadRequest, "monthly_salary must be a decimal", err)
			return
		}
	} else {
		profile, err := h.Store.GetProfile(r.Context(), finance.UserID(req.UserID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load profile", err)
			return
		}
		if profile == nil {
			writeError(w, http.StatusNotFound, "Compensation profile not found", nil)
			return
		}
		salary = profile.MonthlySalary
	}

	allowances, err := parseOptionalDecimal(req.Allowances)
	if err != nil {
		writeError(w, http.StatusBadRequest, "allowances must be a decimal", err)
		return
	}
	bonuses, err := parseOptionalDecimal(req.Bonuses)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bonuses must be a decimal", err)
		return
	}
	deductions, err := parseOptionalDecimal(req.OtherDeductions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "other_deductions must be a decimal", err)
		return
	}

	slip, err := finance.ComputePayslip(finance.PayslipInput{
		UserID:          finance.UserID(req.UserID),
		MonthlySalary:   salary,
		PeriodStart:     start,
		PeriodEnd:       end,
		Allowances:      allowances,
		Bonuses:         bonuses,
		OtherDeductions: deductions,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayslipDTO(*slip))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps finance sentinels onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, finance.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, finance.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, finance.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func parseOptionalDate(s string) (*finance.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := finance.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
