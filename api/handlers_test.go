package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiobooks/finance-engine/store/sqlite"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h, err := NewHandler(store)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(h, zerolog.Nop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func seedProject(t *testing.T, srv *httptest.Server) (projectID string, phaseIDs []string) {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"id":        "proj-1",
		"name":      "Riverside Residence",
		"total_fee": "500000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/projects/proj-1/phases", nil)
	require.NoError(t, err)
	phResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer phResp.Body.Close()

	var phases []map[string]any
	require.NoError(t, json.NewDecoder(phResp.Body).Decode(&phases))
	require.NotEmpty(t, phases)
	for _, p := range phases {
		phaseIDs = append(phaseIDs, p["id"].(string))
	}
	return "proj-1", phaseIDs
}

func seedProfile(t *testing.T, srv *httptest.Server, userID, salary string) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPut, "/api/users/"+userID+"/profile", map[string]any{
		"monthly_salary": salary,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
}

func TestCreateProject_LaysOutFullLifecycle(t *testing.T) {
	srv := testServer(t)

	_, phaseIDs := seedProject(t, srv)

	// One phase per lifecycle stage when none are selected explicitly
	assert.Len(t, phaseIDs, 7)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/projects/proj-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONCEPT", body["stage"])
	assert.Equal(t, "500000", body["total_fee"])
	assert.Equal(t, "0.2", body["target_profit_margin"]) // default margin applied
}

func TestCreateProject_Validation(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"name": "No Fee",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"name":      "Bad Stage",
		"total_fee": "1000",
		"stages":    []string{"DEMOLITION"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutProfile_ReturnsResolvedRate(t *testing.T) {
	srv := testServer(t)

	resp, body := doJSON(t, srv, http.MethodPut, "/api/users/arch-1/profile", map[string]any{
		"monthly_salary": "80000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// (80000 / 160) * 2.5 = 1250 with defaults applied
	assert.Equal(t, "1250", body["hourly_rate"])
	assert.Equal(t, float64(160), body["typical_hours_per_month"])

	resp, body = doJSON(t, srv, http.MethodGet, "/api/users/arch-1/rate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1250", body["hourly_rate"])
}

func TestGetRate_MissingProfile(t *testing.T) {
	srv := testServer(t)
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/users/ghost/rate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAssignment_Lifecycle(t *testing.T) {
	srv := testServer(t)
	_, phaseIDs := seedProject(t, srv)
	seedProfile(t, srv, "arch-1", "80000")

	// Create succeeds and carries the rate snapshot
	resp, body := doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 40,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)

	asg := body["assignment"].(map[string]any)
	assert.Equal(t, "1250", asg["billing_rate"])
	assert.Equal(t, "proj-1", asg["project_id"])

	// The advisory utilization payload rides along
	util := body["utilization"].(map[string]any)
	assert.Equal(t, false, util["is_over_utilized"])

	// Duplicate pair conflicts
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 10,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Remove, then the pair is free again
	resp, _ = doJSON(t, srv, http.MethodDelete,
		fmt.Sprintf("/api/assignments?user_id=%s&phase_id=%s", "arch-1", phaseIDs[0]), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 25,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateAssignment_Validation(t *testing.T) {
	srv := testServer(t)
	_, phaseIDs := seedProject(t, srv)
	seedProfile(t, srv, "arch-1", "80000")

	// Non-positive hours
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown phase
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      "no-such",
		"planned_hours": 10,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBurnRateEndpoint(t *testing.T) {
	srv := testServer(t)
	_, phaseIDs := seedProject(t, srv)
	// Rate resolves to (64000/160)*2.5 = 1000/hr
	seedProfile(t, srv, "arch-1", "64000")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// 60h * 1000 = 60,000 of the 400,000 production budget = 15%
	resp, body := doJSON(t, srv, http.MethodGet, "/api/projects/proj-1/burn-rate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "400000", body["production_budget"])
	assert.Equal(t, "60000", body["current_burn"])
	assert.Equal(t, "healthy", body["status"])

	// Phase-scoped view
	resp, body = doJSON(t, srv, http.MethodGet, "/api/projects/proj-1/burn-rate?phase_id="+phaseIDs[1], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["current_burn"])

	// Unknown project
	resp, _ = doJSON(t, srv, http.MethodGet, "/api/projects/nope/burn-rate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUtilizationEndpoint(t *testing.T) {
	srv := testServer(t)
	_, phaseIDs := seedProject(t, srv)
	seedProfile(t, srv, "arch-1", "80000")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/assignments", map[string]any{
		"user_id":       "arch-1",
		"phase_id":      phaseIDs[0],
		"planned_hours": 25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// 25 committed + 20 proposed = 45, over by 5
	resp, body := doJSON(t, srv, http.MethodGet, "/api/utilization?user_id=arch-1&hours=20", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_over_utilized"])
	assert.Equal(t, float64(45), body["total_hours_planned"])
	assert.Equal(t, float64(5), body["hours_over_limit"])
	assert.Equal(t, float64(40), body["weekly_capacity"])

	// user_id is mandatory
	resp, _ = doJSON(t, srv, http.MethodGet, "/api/utilization?hours=20", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStandardInvoiceEndpoint(t *testing.T) {
	srv := testServer(t)
	seedProject(t, srv)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/invoices/standard", map[string]any{
		"project_id": "proj-1",
		"stage":      "CONCEPT",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)

	// 10% of 500,000
	line := body["line"].(map[string]any)
	assert.Equal(t, "50000", line["unit_price"])
	assert.Equal(t, "1", line["quantity"])
	assert.Equal(t, "50000", body["total"])
	assert.NotEmpty(t, body["number"])
	assert.NotEmpty(t, body["due_date"])
}

func TestUpdateStageEndpoint(t *testing.T) {
	srv := testServer(t)
	seedProject(t, srv)

	// Forward advance
	resp, body := doJSON(t, srv, http.MethodPost, "/api/projects/proj-1/stage", map[string]any{
		"stage": "TENDER",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TENDER", body["stage"])

	// Backward without override is rejected
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/projects/proj-1/stage", map[string]any{
		"stage": "CONCEPT",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Backward with override is allowed
	resp, body = doJSON(t, srv, http.MethodPost, "/api/projects/proj-1/stage", map[string]any{
		"stage":          "CONCEPT",
		"allow_backward": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONCEPT", body["stage"])

	// Completion deactivates the project
	resp, body = doJSON(t, srv, http.MethodPost, "/api/projects/proj-1/stage", map[string]any{
		"stage": "COMPLETION",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["active"])
}

func TestComputePayslipEndpoint(t *testing.T) {
	srv := testServer(t)
	seedProfile(t, srv, "arch-1", "50000")

	// Salary pulled from the stored profile
	resp, body := doJSON(t, srv, http.MethodPost, "/api/payslips/compute", map[string]any{
		"user_id":      "arch-1",
		"period_start": "2024-05-06",
		"period_end":   "2024-05-10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, float64(5), body["days_worked"])
	assert.Equal(t, "10869.57", body["gross_salary"])

	// Explicit salary and adjustments
	resp, body = doJSON(t, srv, http.MethodPost, "/api/payslips/compute", map[string]any{
		"user_id":        "arch-2",
		"monthly_salary": "50000",
		"period_start":   "2024-05-01",
		"period_end":     "2024-05-31",
		"allowances":     "2000",
		"bonuses":        "1000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "53000", body["net_salary"])

	// No profile and no salary
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/payslips/compute", map[string]any{
		"user_id":      "ghost",
		"period_start": "2024-05-01",
		"period_end":   "2024-05-31",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListStagesEndpoint(t *testing.T) {
	srv := testServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stages", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stages []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stages))
	require.Len(t, stages, 7)
	assert.Equal(t, "CONCEPT", stages[0]["stage"])
	assert.Equal(t, "10", stages[0]["fee_percent"])
	assert.Equal(t, "COMPLETION", stages[6]["stage"])
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	resp, body := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
