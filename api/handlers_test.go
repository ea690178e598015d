package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/allowance-engine/api"
	"github.com/warp/allowance-engine/chore"
	"github.com/warp/allowance-engine/chore/store"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	t      *testing.T
	router http.Handler

	parentID string
	childID  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	svc := chore.NewService(store.NewMemory())
	h := &harness{t: t, router: api.NewRouter(api.NewHandler(svc))}

	var parent api.MemberDTO
	h.do("POST", "/api/members", "", api.CreateMemberRequest{Name: "Pat", Role: "parent"}, http.StatusCreated, &parent)
	h.parentID = parent.ID

	var child api.MemberDTO
	h.do("POST", "/api/members", h.parentID, api.CreateMemberRequest{Name: "Alice", Role: "child"}, http.StatusCreated, &child)
	h.childID = child.ID

	return h
}

// do sends a request and decodes the response body into out (if non-nil).
func (h *harness) do(method, path, actorID string, body any, wantStatus int, out any) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(h.t, wantStatus, rec.Code, "body: %s", rec.Body.String())

	if out != nil {
		require.NoError(h.t, json.NewDecoder(rec.Body).Decode(out))
	}
}

// fixedTemplate authors a fixed-reward chore for the child and returns the
// created template plus its materialized assignments.
func (h *harness) fixedTemplate(amount string) (api.TemplateDTO, []api.AssignmentDTO) {
	h.t.Helper()
	var resp struct {
		Template    api.TemplateDTO     `json:"template"`
		Assignments []api.AssignmentDTO `json:"assignments"`
	}
	h.do("POST", "/api/templates", h.parentID, api.CreateTemplateRequest{
		Title:       "Dishes",
		Reward:      api.RewardPolicyDTO{Kind: "fixed", Amount: amount},
		Mode:        "single",
		AssigneeIDs: []string{h.childID},
	}, http.StatusCreated, &resp)
	require.Len(h.t, resp.Assignments, 1)
	return resp.Template, resp.Assignments
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestAPI_CompleteApproveLifecycle(t *testing.T) {
	h := newHarness(t)
	_, assignments := h.fixedTemplate("5.00")
	id := assignments[0].ID

	var completed api.AssignmentDTO
	h.do("POST", "/api/assignments/"+id+"/complete", h.childID, nil, http.StatusOK, &completed)
	assert.Equal(t, "pending_approval", completed.State)
	assert.NotNil(t, completed.CompletedAt)

	var approved api.AssignmentDTO
	h.do("POST", "/api/assignments/"+id+"/approve", h.parentID, nil, http.StatusOK, &approved)
	assert.Equal(t, "approved", approved.State)
	require.NotNil(t, approved.ApprovalReward)
	assert.Equal(t, "5.00", *approved.ApprovalReward)

	var balance api.BalanceDTO
	h.do("GET", "/api/children/"+h.childID+"/balance", h.parentID, nil, http.StatusOK, &balance)
	assert.Equal(t, "5.00", balance.BalanceDue)
	assert.Equal(t, "5.00", balance.TotalEarned)
}

func TestAPI_RejectLifecycle(t *testing.T) {
	h := newHarness(t)
	_, assignments := h.fixedTemplate("5.00")
	id := assignments[0].ID

	h.do("POST", "/api/assignments/"+id+"/complete", h.childID, nil, http.StatusOK, nil)

	// A reason is required.
	h.do("POST", "/api/assignments/"+id+"/reject", h.parentID,
		api.RejectRequest{}, http.StatusBadRequest, nil)

	var rejected api.AssignmentDTO
	h.do("POST", "/api/assignments/"+id+"/reject", h.parentID,
		api.RejectRequest{Reason: "still dirty"}, http.StatusOK, &rejected)
	assert.Equal(t, "available", rejected.State)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "still dirty", *rejected.RejectionReason)
	assert.Nil(t, rejected.CompletedAt)
}

func TestAPI_RangeApprovalAmount(t *testing.T) {
	h := newHarness(t)

	var resp struct {
		Template    api.TemplateDTO     `json:"template"`
		Assignments []api.AssignmentDTO `json:"assignments"`
	}
	h.do("POST", "/api/templates", h.parentID, api.CreateTemplateRequest{
		Title:       "Mow the lawn",
		Reward:      api.RewardPolicyDTO{Kind: "range", Min: "5.00", Max: "15.00"},
		Mode:        "single",
		AssigneeIDs: []string{h.childID},
	}, http.StatusCreated, &resp)
	id := resp.Assignments[0].ID

	h.do("POST", "/api/assignments/"+id+"/complete", h.childID, nil, http.StatusOK, nil)

	// No amount on a range policy is a validation failure.
	h.do("POST", "/api/assignments/"+id+"/approve", h.parentID, nil, http.StatusBadRequest, nil)

	amount := "10.00"
	var approved api.AssignmentDTO
	h.do("POST", "/api/assignments/"+id+"/approve", h.parentID,
		api.ApproveRequest{Amount: &amount}, http.StatusOK, &approved)
	require.NotNil(t, approved.ApprovalReward)
	assert.Equal(t, "10.00", *approved.ApprovalReward)
}

func TestAPI_AdjustmentsAndPayouts(t *testing.T) {
	h := newHarness(t)

	var adj api.AdjustmentDTO
	h.do("POST", "/api/adjustments", h.parentID, api.AdjustmentRequest{
		ChildID: h.childID, Amount: "-2.50", Reason: "broken vase",
	}, http.StatusCreated, &adj)
	assert.Equal(t, "-2.50", adj.Amount)

	var payout api.PayoutDTO
	h.do("POST", "/api/payouts", h.parentID, api.PayoutRequest{
		ChildID: h.childID, Amount: "1.00", Note: "pocket money",
	}, http.StatusCreated, &payout)

	var balance api.BalanceDTO
	h.do("GET", "/api/children/"+h.childID+"/balance", h.childID, nil, http.StatusOK, &balance)
	assert.Equal(t, "-3.50", balance.BalanceDue)

	var history []api.AdjustmentDTO
	h.do("GET", "/api/children/"+h.childID+"/adjustments", h.parentID, nil, http.StatusOK, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "broken vase", history[0].Reason)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_ErrorStatusMapping(t *testing.T) {
	h := newHarness(t)
	_, assignments := h.fixedTemplate("5.00")
	id := assignments[0].ID

	// No actor header: 401.
	h.do("GET", "/api/assignments", "", nil, http.StatusUnauthorized, nil)

	// Unknown actor: 401.
	h.do("GET", "/api/assignments", "nobody", nil, http.StatusUnauthorized, nil)

	// Approving an uncompleted chore: 409 state conflict.
	h.do("POST", "/api/assignments/"+id+"/approve", h.parentID, nil, http.StatusConflict, nil)

	// Unknown template: 404.
	h.do("GET", "/api/templates/missing", h.parentID, nil, http.StatusNotFound, nil)

	// Zero adjustment: 400 validation.
	h.do("POST", "/api/adjustments", h.parentID, api.AdjustmentRequest{
		ChildID: h.childID, Amount: "0", Reason: "nothing",
	}, http.StatusBadRequest, nil)
}

func TestAPI_CrossFamilyIsOpaque(t *testing.T) {
	h := newHarness(t)
	tmpl, assignments := h.fixedTemplate("5.00")

	var rival api.MemberDTO
	h.do("POST", "/api/members", "", api.CreateMemberRequest{Name: "Riley", Role: "parent"}, http.StatusCreated, &rival)

	// A foreign parent probing another family's resources gets a bare 403,
	// identical whether or not the resource exists.
	var errResp api.ErrorResponse
	h.do("GET", "/api/templates/"+tmpl.ID, rival.ID, nil, http.StatusForbidden, &errResp)
	assert.Equal(t, "not authorized", errResp.Error)

	h.do("POST", "/api/assignments/"+assignments[0].ID+"/approve", rival.ID, nil, http.StatusForbidden, nil)
	h.do("GET", "/api/children/"+h.childID+"/balance", rival.ID, nil, http.StatusForbidden, nil)
}

func TestAPI_DisableEnableTemplate(t *testing.T) {
	h := newHarness(t)
	tmpl, assignments := h.fixedTemplate("5.00")

	var disabled api.TemplateDTO
	h.do("POST", "/api/templates/"+tmpl.ID+"/disable", h.parentID, nil, http.StatusOK, &disabled)
	assert.True(t, disabled.IsDisabled)

	// Completion against a disabled template conflicts.
	h.do("POST", "/api/assignments/"+assignments[0].ID+"/complete", h.childID, nil, http.StatusConflict, nil)

	var enabled api.TemplateDTO
	h.do("POST", "/api/templates/"+tmpl.ID+"/enable", h.parentID, nil, http.StatusOK, &enabled)
	assert.False(t, enabled.IsDisabled)

	h.do("POST", "/api/assignments/"+assignments[0].ID+"/complete", h.childID, nil, http.StatusOK, nil)
}

func TestAPI_FamilyBalanceRollup(t *testing.T) {
	h := newHarness(t)
	_, assignments := h.fixedTemplate("5.00")
	id := assignments[0].ID

	h.do("POST", "/api/assignments/"+id+"/complete", h.childID, nil, http.StatusOK, nil)
	h.do("POST", "/api/assignments/"+id+"/approve", h.parentID, nil, http.StatusOK, nil)

	var snaps []api.BalanceDTO
	h.do("GET", "/api/family/balance", h.parentID, nil, http.StatusOK, &snaps)
	require.Len(t, snaps, 1)
	assert.Equal(t, h.childID, snaps[0].ChildID)
	assert.Equal(t, "5.00", snaps[0].BalanceDue)

	// Children have no rollup view.
	h.do("GET", "/api/family/balance", h.childID, nil, http.StatusForbidden, nil)
}
