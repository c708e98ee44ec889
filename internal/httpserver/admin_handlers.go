package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veriport/veriport/internal/auth"
	"github.com/veriport/veriport/internal/directory"
	"github.com/veriport/veriport/internal/ledger"
)

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, directory.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err)
		return
	}
	s.respondError(w, http.StatusInternalServerError, err)
}

// Officers

func (s *Server) handleOfficerList(w http.ResponseWriter, r *http.Request) {
	officers, err := s.directory.ListOfficers(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]map[string]any, 0, len(officers))
	for i := range officers {
		resp = append(resp, toOfficerPayload(&officers[i]))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"officers": resp})
}

func (s *Server) handleOfficerCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Mobile   string `json:"mobile"`
		Role     string `json:"role"`
		PlanID   *int64 `json:"plan_id"`
		Credits  int64  `json:"credits"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if strings.TrimSpace(req.Name) == "" || email == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("name, email and password required"))
		return
	}
	role := directory.Role(req.Role)
	switch role {
	case "":
		role = directory.RoleOfficer
	case directory.RoleOfficer, directory.RoleAdmin:
	default:
		s.respondError(w, http.StatusBadRequest, errors.New("role must be officer or admin"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	officer, err := s.directory.CreateOfficer(r.Context(), directory.CreateOfficerParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Mobile:       strings.TrimSpace(req.Mobile),
		Role:         role,
		PlanID:       req.PlanID,
		Credits:      req.Credits,
		PasswordHash: hash,
	})
	if err != nil {
		s.respondError(w, http.StatusConflict, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"officer": toOfficerPayload(officer)})
}

func (s *Server) handleOfficerGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	officer, err := s.directory.GetOfficer(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"officer": toOfficerPayload(officer)})
}

func (s *Server) handleOfficerUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Name   *string `json:"name"`
		Mobile *string `json:"mobile"`
		PlanID *int64  `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	officer, err := s.directory.UpdateOfficer(r.Context(), id, directory.OfficerUpdate{
		Name:   req.Name,
		Mobile: req.Mobile,
		PlanID: req.PlanID,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"officer": toOfficerPayload(officer)})
}

func (s *Server) handleOfficerDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	info := sessionFromContext(r.Context())
	if info.officer.ID == id {
		s.respondError(w, http.StatusBadRequest, errors.New("cannot delete your own account"))
		return
	}
	if err := s.directory.DeleteOfficer(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleOfficerStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	status := directory.Status(req.Status)
	if status != directory.StatusActive && status != directory.StatusSuspended {
		s.respondError(w, http.StatusBadRequest, errors.New("status must be active or suspended"))
		return
	}
	info := sessionFromContext(r.Context())
	if info.officer.ID == id && status == directory.StatusSuspended {
		s.respondError(w, http.StatusBadRequest, errors.New("cannot suspend your own account"))
		return
	}
	if err := s.directory.SetOfficerStatus(r.Context(), id, status); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

// handleOfficerCredits applies a manual balance adjustment and writes the
// matching transaction row. Top-ups and renewals raise the officer's ceiling;
// refunds only restore spent credits.
func (s *Server) handleOfficerCredits(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Action  string `json:"action"`
		Credits int64  `json:"credits"`
		Remark  string `json:"remark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Credits <= 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("credits must be positive"))
		return
	}
	var action ledger.Action
	raiseCeiling := false
	switch ledger.Action(req.Action) {
	case ledger.ActionTopup:
		action = ledger.ActionTopup
		raiseCeiling = true
	case ledger.ActionRenewal:
		action = ledger.ActionRenewal
		raiseCeiling = true
	case ledger.ActionRefund:
		action = ledger.ActionRefund
	default:
		s.respondError(w, http.StatusBadRequest, errors.New("action must be topup, renewal or refund"))
		return
	}

	officer, err := s.directory.GetOfficer(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if action == ledger.ActionTopup && officer.PlanID != nil {
		plan, perr := s.directory.GetPlan(r.Context(), *officer.PlanID)
		if perr == nil && !plan.TopupAllowed {
			s.respondError(w, http.StatusBadRequest, errors.New("plan does not allow top-ups"))
			return
		}
	}

	if err := s.directory.CreditCredits(r.Context(), id, req.Credits, raiseCeiling); err != nil {
		s.respondStoreError(w, err)
		return
	}
	info := sessionFromContext(r.Context())
	remark := strings.TrimSpace(req.Remark)
	if remark == "" {
		remark = "manual " + string(action) + " by " + info.officer.Email
	}
	if err := s.ledger.RecordTransaction(r.Context(), ledger.Transaction{
		OfficerID: id,
		Action:    action,
		Credits:   req.Credits,
		Remark:    remark,
	}); err != nil {
		s.logger.Printf("reconcile manually: %s of %d credits for officer %d applied but not journaled: %v", action, req.Credits, id, err)
		s.respondError(w, http.StatusInternalServerError, errors.New("adjustment applied but not journaled"))
		return
	}

	updated, err := s.directory.GetOfficer(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"officer": toOfficerPayload(updated)})
}

func (s *Server) handleOfficerPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.directory.SetOfficerPassword(r.Context(), id, hash); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "password": "updated"})
}

// Rate plans

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.directory.ListPlans(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]map[string]any, 0, len(plans))
	for i := range plans {
		resp = append(resp, toPlanPayload(&plans[i]))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"plans": resp})
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string  `json:"name"`
		UserType        string  `json:"user_type"`
		MonthlyFee      float64 `json:"monthly_fee"`
		DefaultCredits  int64   `json:"default_credits"`
		RenewalRequired bool    `json:"renewal_required"`
		TopupAllowed    bool    `json:"topup_allowed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("name required"))
		return
	}
	plan, err := s.directory.CreatePlan(r.Context(), directory.RatePlan{
		Name:            strings.TrimSpace(req.Name),
		UserType:        req.UserType,
		MonthlyFee:      req.MonthlyFee,
		DefaultCredits:  req.DefaultCredits,
		RenewalRequired: req.RenewalRequired,
		TopupAllowed:    req.TopupAllowed,
	})
	if err != nil {
		s.respondError(w, http.StatusConflict, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"plan": toPlanPayload(plan)})
}

func (s *Server) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Name            *string  `json:"name"`
		UserType        *string  `json:"user_type"`
		MonthlyFee      *float64 `json:"monthly_fee"`
		DefaultCredits  *int64   `json:"default_credits"`
		RenewalRequired *bool    `json:"renewal_required"`
		TopupAllowed    *bool    `json:"topup_allowed"`
		Status          *string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	updates := directory.PlanUpdate{
		Name:            req.Name,
		UserType:        req.UserType,
		MonthlyFee:      req.MonthlyFee,
		DefaultCredits:  req.DefaultCredits,
		RenewalRequired: req.RenewalRequired,
		TopupAllowed:    req.TopupAllowed,
	}
	if req.Status != nil {
		status := directory.Status(*req.Status)
		if status != directory.StatusActive && status != directory.StatusSuspended {
			s.respondError(w, http.StatusBadRequest, errors.New("status must be active or suspended"))
			return
		}
		updates.Status = &status
	}
	plan, err := s.directory.UpdatePlan(r.Context(), id, updates)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"plan": toPlanPayload(plan)})
}

func (s *Server) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.directory.DeletePlan(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handlePlanCapabilityList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	pcs, err := s.directory.ListPlanCapabilities(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(pcs))
	for _, pc := range pcs {
		resp = append(resp, toPlanCapabilityPayload(pc))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"capabilities": resp})
}

func (s *Server) handlePlanCapabilitySet(w http.ResponseWriter, r *http.Request) {
	planID, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	capID, err := idParam(r, "capID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Enabled    bool    `json:"enabled"`
		CreditCost int64   `json:"credit_cost"`
		BuyPrice   float64 `json:"buy_price"`
		SellPrice  float64 `json:"sell_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.CreditCost < 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("credit_cost cannot be negative"))
		return
	}
	if _, err := s.directory.GetPlan(r.Context(), planID); err != nil {
		s.respondStoreError(w, err)
		return
	}
	if _, err := s.directory.GetCapability(r.Context(), capID); err != nil {
		s.respondStoreError(w, err)
		return
	}
	pc := directory.PlanCapability{
		PlanID:       planID,
		CapabilityID: capID,
		Enabled:      req.Enabled,
		CreditCost:   req.CreditCost,
		BuyPrice:     req.BuyPrice,
		SellPrice:    req.SellPrice,
	}
	if err := s.directory.SetPlanCapability(r.Context(), pc); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"capability": toPlanCapabilityPayload(pc)})
}

// Capabilities

func (s *Server) handleCapabilityList(w http.ResponseWriter, r *http.Request) {
	caps, err := s.directory.ListCapabilities(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]map[string]any, 0, len(caps))
	for i := range caps {
		resp = append(resp, toCapabilityPayload(&caps[i]))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"capabilities": resp})
}

func (s *Server) handleCapabilityCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Tier        string `json:"tier"`
		Adapter     string `json:"adapter"`
		Credential  string `json:"credential"`
		DefaultCost int64  `json:"default_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" || strings.TrimSpace(req.Adapter) == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("key and adapter required"))
		return
	}
	if req.DefaultCost < 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("default_cost cannot be negative"))
		return
	}
	cap, err := s.directory.CreateCapability(r.Context(), directory.Capability{
		Key:         key,
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Tier:        directory.Tier(req.Tier),
		Adapter:     strings.TrimSpace(req.Adapter),
		Credential:  req.Credential,
		DefaultCost: req.DefaultCost,
	})
	if err != nil {
		s.respondError(w, http.StatusConflict, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"capability": toCapabilityPayload(cap)})
}

func (s *Server) handleCapabilityUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Category    *string `json:"category"`
		Tier        *string `json:"tier"`
		Adapter     *string `json:"adapter"`
		Credential  *string `json:"credential"`
		DefaultCost *int64  `json:"default_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	updates := directory.CapabilityUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Adapter:     req.Adapter,
		Credential:  req.Credential,
		DefaultCost: req.DefaultCost,
	}
	if req.Tier != nil {
		tier := directory.Tier(*req.Tier)
		switch tier {
		case directory.TierFree, directory.TierPro, directory.TierDisabled:
		default:
			s.respondError(w, http.StatusBadRequest, errors.New("tier must be free, pro or disabled"))
			return
		}
		updates.Tier = &tier
	}
	cap, err := s.directory.UpdateCapability(r.Context(), id, updates)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"capability": toCapabilityPayload(cap)})
}

func (s *Server) handleCapabilityDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.directory.DeleteCapability(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleCapabilityKeyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		KeyStatus string `json:"key_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	status := directory.KeyStatus(req.KeyStatus)
	if status != directory.KeyActive && status != directory.KeyInactive {
		s.respondError(w, http.StatusBadRequest, errors.New("key_status must be active or inactive"))
		return
	}
	if err := s.directory.SetCapabilityKeyStatus(r.Context(), id, status); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "key_status": status})
}

// Registrations

func (s *Server) handleRegistrationList(w http.ResponseWriter, r *http.Request) {
	status := directory.RegistrationStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	regs, err := s.directory.ListRegistrations(r.Context(), status)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]map[string]any, 0, len(regs))
	for i := range regs {
		resp = append(resp, toRegistrationPayload(&regs[i]))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"registrations": resp})
}

func (s *Server) handleRegistrationApprove(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		PlanID   int64  `json:"plan_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.PlanID <= 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("plan_id required"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	info := sessionFromContext(r.Context())
	officer, err := s.directory.ApproveRegistration(r.Context(), id, req.PlanID, hash, info.officer.Email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err)
			return
		}
		s.respondError(w, http.StatusConflict, err)
		return
	}
	if officer.CreditsRemaining > 0 {
		err := s.ledger.RecordTransaction(r.Context(), ledger.Transaction{
			OfficerID: officer.ID,
			Action:    ledger.ActionRenewal,
			Credits:   officer.CreditsRemaining,
			Remark:    "initial credits on registration approval",
		})
		if err != nil {
			s.logger.Printf("reconcile manually: initial %d credits for officer %d granted but not journaled: %v", officer.CreditsRemaining, officer.ID, err)
		}
	}
	s.logger.Printf("registration %d approved, officer %d created on plan %d", id, officer.ID, req.PlanID)
	s.respondJSON(w, http.StatusOK, map[string]any{"officer": toOfficerPayload(officer)})
}

func (s *Server) handleRegistrationReject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	info := sessionFromContext(r.Context())
	if err := s.directory.RejectRegistration(r.Context(), id, strings.TrimSpace(req.Reason), info.officer.Email); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err)
			return
		}
		s.respondError(w, http.StatusConflict, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": directory.RegistrationRejected})
}

// Audit

func (s *Server) handleAdminQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.QueryFilter{
		CapabilityKey: strings.TrimSpace(q.Get("capability")),
		Status:        ledger.QueryStatus(strings.TrimSpace(q.Get("status"))),
		Limit:         queryLimit(r),
	}
	if raw := strings.TrimSpace(q.Get("officer_id")); raw != "" {
		officerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || officerID <= 0 {
			s.respondError(w, http.StatusBadRequest, errors.New("invalid officer_id"))
			return
		}
		filter.OfficerID = officerID
	}
	logs, err := s.ledger.ListQueries(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"queries": logs})
}

func (s *Server) handleAdminTransactions(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("officer_id"))
	officerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || officerID <= 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("officer_id required"))
		return
	}
	txns, err := s.ledger.ListTransactions(r.Context(), officerID, queryLimit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("officer_id"))
	officerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || officerID <= 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("officer_id required"))
		return
	}
	summary, err := s.ledger.Summary(r.Context(), officerID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}
