/*
handlers.go - HTTP API handlers for the chore engine

PURPOSE:
  Exposes the chore-and-allowance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the chore
  service.

REQUEST FLOW:
  1. Resolve the acting member from the X-Actor-ID header
  2. Parse and structurally validate the request body
  3. Call the service (all business rules and authorization live there)
  4. Serialize the response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the engine's
  error taxonomy:
  - 400: validation errors - correct the input and resubmit
  - 403: authorization errors - never retried
  - 404: missing entities
  - 409: state conflicts - the client's view is stale; refresh, then
         decide whether the intended operation still makes sense
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - chore/errors.go: The taxonomy behind the status mapping
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/allowance-engine/chore"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *chore.Service
}

// NewHandler creates a new handler around the chore service.
func NewHandler(svc *chore.Service) *Handler {
	return &Handler{Service: svc}
}

// actor resolves the acting member from the X-Actor-ID header.
// A missing or unknown header yields a 401 and a false second return.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (chore.Actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		writeError(w, http.StatusUnauthorized, "X-Actor-ID header required", nil)
		return chore.Actor{}, false
	}
	actor, err := h.Service.ResolveActor(r.Context(), chore.MemberID(id))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown actor", err)
		return chore.Actor{}, false
	}
	return actor, true
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// CreateMember registers a parent, or - when a parent actor is supplied -
// a child belonging to that parent.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	switch chore.Role(req.Role) {
	case chore.RoleParent:
		m, err := h.Service.RegisterParent(r.Context(), req.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMemberDTO(*m))
	case chore.RoleChild:
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		m, err := h.Service.RegisterChild(r.Context(), actor, req.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMemberDTO(*m))
	default:
		writeError(w, http.StatusBadRequest, "role must be parent or child", nil)
	}
}

// ListFamily returns the acting member's family.
func (h *Handler) ListFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	family, err := h.Service.Store.ListFamily(r.Context(), actor.FamilyID())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]MemberDTO, len(family))
	for i, m := range family {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// CreateTemplate authors a chore template and returns it together with the
// assignments it materialized.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reward, err := fromRewardPolicyDTO(req.Reward)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	assignees := make([]chore.MemberID, len(req.AssigneeIDs))
	for i, id := range req.AssigneeIDs {
		assignees[i] = chore.MemberID(id)
	}

	t, assignments, err := h.Service.CreateTemplate(r.Context(), actor, chore.TemplateSpec{
		Title:        req.Title,
		Description:  req.Description,
		Reward:       reward,
		IsRecurring:  req.IsRecurring,
		CooldownDays: req.CooldownDays,
		Mode:         chore.AssignmentMode(req.Mode),
		AssigneeIDs:  assignees,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Template    TemplateDTO     `json:"template"`
		Assignments []AssignmentDTO `json:"assignments"`
	}{toTemplateDTO(*t), toAssignmentDTOs(assignments)})
}

// ListTemplates returns the family's templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	templates, err := h.Service.ListTemplates(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTemplate returns a single template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Service.GetTemplate(r.Context(), actor, chore.TemplateID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*t))
}

// UpdateTemplate edits a template's editable fields.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	update := chore.TemplateUpdate{
		Title:        req.Title,
		Description:  req.Description,
		IsRecurring:  req.IsRecurring,
		CooldownDays: req.CooldownDays,
	}
	if req.Reward != nil {
		reward, err := fromRewardPolicyDTO(*req.Reward)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		update.Reward = &reward
	}

	t, err := h.Service.UpdateTemplate(r.Context(), actor, chore.TemplateID(chi.URLParam(r, "id")), update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*t))
}

// DeleteTemplate destroys a template with no assignment history.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteTemplate(r.Context(), actor, chore.TemplateID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisableTemplate sets the disabled overlay.
func (h *Handler) DisableTemplate(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true)
}

// EnableTemplate clears the disabled overlay.
func (h *Handler) EnableTemplate(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false)
}

func (h *Handler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.Service.SetTemplateDisabled(r.Context(), actor, chore.TemplateID(chi.URLParam(r, "id")), disabled)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*t))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// ListAssignments returns assignments visible to the actor, filtered by
// ?filter=available|pending|approved and optionally ?child=<id>.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	filter := chore.ListFilter(r.URL.Query().Get("filter"))
	var forChild *chore.MemberID
	if c := r.URL.Query().Get("child"); c != "" {
		id := chore.MemberID(c)
		forChild = &id
	}

	assignments, err := h.Service.ListAssignments(r.Context(), actor, filter, forChild)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(assignments))
}

// CompleteAssignment marks a chore done and submits it for approval.
func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	a, err := h.Service.Complete(r.Context(), actor, chore.AssignmentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// ApproveAssignment approves a pending chore and credits the reward.
func (h *Handler) ApproveAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	var proposed *decimal.Decimal
	if req.Amount != nil {
		d, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
			return
		}
		proposed = &d
	}

	a, err := h.Service.Approve(r.Context(), actor, chore.AssignmentID(chi.URLParam(r, "id")), proposed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// RejectAssignment returns a pending chore to the child with a reason.
func (h *Handler) RejectAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	a, err := h.Service.Reject(r.Context(), actor, chore.AssignmentID(chi.URLParam(r, "id")), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// CreateAdjustment records a manual bonus or deduction.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}

	adj, err := h.Service.CreateAdjustment(r.Context(), actor, chore.MemberID(req.ChildID), amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(*adj))
}

// RecordPayout records an amount actually paid to a child.
func (h *Handler) RecordPayout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}

	p, err := h.Service.RecordPayout(r.Context(), actor, chore.MemberID(req.ChildID), amount, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayoutDTO(*p))
}

// ListAdjustments returns a child's adjustment history.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	adjustments, err := h.Service.ListAdjustments(r.Context(), actor, chore.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AdjustmentDTO, len(adjustments))
	for i, a := range adjustments {
		dtos[i] = toAdjustmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPayouts returns a child's payout history.
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	payouts, err := h.Service.ListPayouts(r.Context(), actor, chore.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PayoutDTO, len(payouts))
	for i, p := range payouts {
		dtos[i] = toPayoutDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns the derived balance snapshot for one child.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	snap, err := h.Service.ComputeBalance(r.Context(), actor, chore.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(snap))
}

// FamilyBalances returns one snapshot per child for the acting parent.
func (h *Handler) FamilyBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	snaps, err := h.Service.FamilyBalances(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BalanceDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = toBalanceDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Code = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case chore.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case chore.IsAuthorization(err):
		// Deliberately uninformative: do not reveal whether the resource
		// exists to an unauthorized actor.
		writeError(w, http.StatusForbidden, "not authorized", nil)
	case chore.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case chore.IsStateConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
