// Package handler is the back-office HTTP surface: thin JSON handlers over
// the admin service, chi-routed, bearer-authenticated.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	adminmodels "github.com/sr13dr31/belyispisok/internal/admin/models"
	"github.com/sr13dr31/belyispisok/internal/admin/service"
	appealmodels "github.com/sr13dr31/belyispisok/internal/appeal/models"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	id "github.com/sr13dr31/belyispisok/pkg/domain"
	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
	"github.com/sr13dr31/belyispisok/pkg/platform/middleware/adminauth"
)

// Handler delegates to the admin service; no business logic lives here.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the back-office API. Everything but login requires a bearer
// token; account management additionally requires the superadmin role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(adminauth.Middleware(h.verify))

		r.Get("/dashboard", h.dashboard)
		r.Get("/workers", h.listWorkers)
		r.Get("/companies", h.listCompanies)
		r.Get("/appeals", h.listAppeals)
		r.Get("/audit", h.auditTrail)

		r.Post("/workers/{workerID}/block", h.setWorkerBlocked)
		r.Post("/workers/{workerID}/notes", h.setWorkerNotes)
		r.Post("/workers/{workerID}/passport", h.setWorkerPassport)
		r.Post("/workers/{workerID}/unlock-passport", h.unlockPassport)
		r.Post("/companies/{companyID}/block", h.setCompanyBlocked)
		r.Post("/companies/{companyID}/kyc", h.setKYCStatus)
		r.Post("/companies/{companyID}/subscription", h.grantSubscription)
		r.Delete("/reviews/{reviewID}", h.deleteReview)
		r.Post("/appeals/{appealID}/decision", h.decideAppeal)
		r.Post("/appeals/{appealID}/comment", h.commentAppeal)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSuperAdmin)
			r.Get("/admins", h.listAdmins)
			r.Post("/admins", h.createAdmin)
			r.Post("/admins/{adminID}/deactivate", h.deactivateAdmin)
		})
	})
	return r
}

func (h *Handler) verify(ctx context.Context, token string) (id.AdminID, error) {
	user, err := h.svc.VerifyToken(ctx, token)
	if err != nil {
		return id.AdminID{}, err
	}
	return user.ID, nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"admin_id": user.ID.String(),
		"role":     string(user.Role),
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.BuildDashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"workers":   map[string]int{"total": d.WorkersTotal, "today": d.WorkersToday, "week": d.WorkersWeek},
		"companies": map[string]int{"total": d.CompaniesTotal, "today": d.CompaniesToday, "week": d.CompaniesWeek},
		"employments": map[string]int{
			"open":  d.EmploymentsOpen,
			"ended": d.EmploymentsEnded,
		},
		"reviews": map[string]int{"total": d.ReviewsTotal, "week": d.ReviewsWeek},
		"appeals": map[string]int{"open": d.AppealsOpen, "overdue": d.AppealsOverdue},
		"subscriptions": map[string]int{
			"active": d.SubscriptionsLive,
			"lapsed": d.SubscriptionsLapse,
		},
	})
}

func (h *Handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	filter := identityservice.ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	workers, err := h.svc.Workers(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(workers))
	for _, worker := range workers {
		out = append(out, map[string]any{
			"id":              worker.ID.String(),
			"public_id":       worker.PublicID.String(),
			"full_name":       worker.FullName,
			"phone":           worker.Phone,
			"blocked":         worker.Blocked,
			"passport_locked": worker.PassportLocked,
			"notes":           worker.Notes,
			"created_at":      worker.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"workers": out})
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	filter := identityservice.ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	companies, err := h.svc.Companies(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(companies))
	for _, company := range companies {
		entry := map[string]any{
			"id":                 company.ID.String(),
			"public_id":          company.PublicID.String(),
			"name":               company.Name,
			"city":               company.City,
			"blocked":            company.Blocked,
			"kyc_status":         string(company.KYCStatus),
			"subscription_level": company.SubscriptionLevel,
			"created_at":         company.CreatedAt,
		}
		if company.SubscriptionUntil != nil {
			entry["subscription_until"] = company.SubscriptionUntil
		}
		out = append(out, entry)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}

func (h *Handler) listAppeals(w http.ResponseWriter, r *http.Request) {
	status, err := appealmodels.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	appeals, err := h.svc.AppealsByStatus(r.Context(), status, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(appeals))
	for _, appeal := range appeals {
		entry := map[string]any{
			"id":              appeal.ID.String(),
			"review_id":       appeal.ReviewID.String(),
			"worker_id":       appeal.WorkerID.String(),
			"company_id":      appeal.CompanyID.String(),
			"status":          string(appeal.Status),
			"reason":          appeal.Reason,
			"evidence_refs":   appeal.EvidenceRefs,
			"company_comment": appeal.CompanyComment,
			"admin_comment":   appeal.AdminComment,
			"attempt":         appeal.AttemptsCount,
			"created_at":      appeal.CreatedAt,
		}
		out = append(out, entry)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appeals": out})
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AuditTrail(r.Context(), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"id":          entry.ID.String(),
			"actor_id":    entry.ActorID.String(),
			"action":      string(entry.Action),
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"meta":        entry.Meta,
			"created_at":  entry.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) setWorkerBlocked(w http.ResponseWriter, r *http.Request) {
	workerID, err := id.ParseWorkerID(chi.URLParam(r, "workerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Blocked bool `json:"blocked"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetWorkerBlocked(r.Context(), workerID, req.Blocked); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"blocked": req.Blocked})
}

func (h *Handler) setWorkerNotes(w http.ResponseWriter, r *http.Request) {
	workerID, err := id.ParseWorkerID(chi.URLParam(r, "workerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetWorkerNotes(r.Context(), workerID, req.Notes); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setWorkerPassport(w http.ResponseWriter, r *http.Request) {
	workerID, err := id.ParseWorkerID(chi.URLParam(r, "workerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Passport string `json:"passport"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetWorkerPassport(r.Context(), workerID, req.Passport); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unlockPassport(w http.ResponseWriter, r *http.Request) {
	workerID, err := id.ParseWorkerID(chi.URLParam(r, "workerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.UnlockPassport(r.Context(), workerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCompanyBlocked(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Blocked bool `json:"blocked"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetCompanyBlocked(r.Context(), companyID, req.Blocked); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"blocked": req.Blocked})
}

func (h *Handler) setKYCStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetKYCStatus(r.Context(), companyID, req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantSubscription(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Months int    `json:"months"`
		Level  string `json:"level"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	company, err := h.svc.GrantSubscription(r.Context(), companyID, req.Months, req.Level)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := map[string]any{"subscription_level": company.SubscriptionLevel}
	if company.SubscriptionUntil != nil {
		resp["subscription_until"] = company.SubscriptionUntil
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteReview(r.Context(), reviewID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decideAppeal(w http.ResponseWriter, r *http.Request) {
	appealID, err := id.ParseAppealID(chi.URLParam(r, "appealID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Decision string `json:"decision"`
		Comment  string `json:"comment"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	decision, err := appealmodels.ParseDecision(req.Decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	appeal, err := h.svc.DecideAppeal(r.Context(), appealID, decision, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": string(appeal.Status)})
}

func (h *Handler) commentAppeal(w http.ResponseWriter, r *http.Request) {
	appealID, err := id.ParseAppealID(chi.URLParam(r, "appealID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.CommentAppeal(r.Context(), appealID, req.Comment); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListAdmins(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(users))
	for _, user := range users {
		out = append(out, map[string]any{
			"id":         user.ID.String(),
			"username":   user.Username,
			"role":       string(user.Role),
			"active":     user.Active,
			"created_at": user.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"admins": out})
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	role, err := adminmodels.ParseRole(req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.CreateAdmin(r.Context(), service.CreateAdminInput{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID.String(),
		"username": user.Username,
		"role":     string(user.Role),
	})
}

func (h *Handler) deactivateAdmin(w http.ResponseWriter, r *http.Request) {
	adminID, err := id.ParseAdminID(chi.URLParam(r, "adminID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeactivateAdmin(r.Context(), adminID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSuperAdmin re-verifies the caller's role for account management.
func (h *Handler) requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, dErrors.New(dErrors.CodeUnauthorized, "valid bearer token required"))
			return
		}
		user, err := h.svc.VerifyToken(r.Context(), token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if user.Role != adminmodels.RoleSuperAdmin {
			h.writeError(w, r, dErrors.New(dErrors.CodeForbidden, "superadmin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("admin api request failed", "path", r.URL.Path, "error", err)
	}
	message := "internal error"
	var de *dErrors.Error
	if errors.As(err, &de) && status < http.StatusInternalServerError {
		message = de.Message
	}
	h.writeJSON(w, status, map[string]string{
		"error":             string(dErrors.CodeOf(err)),
		"error_description": message,
	})
}

func statusFor(err error) int {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
