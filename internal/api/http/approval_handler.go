package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"loandesk-backend/internal/domain"
)

// approvalView is what the emailed-link page sees before deciding. The
// token itself is never echoed back.
type approvalView struct {
	ApplicationNumber string `json:"application_number"`
	ApplicantName     string `json:"applicant_name"`
	ApplicantGrade    int32  `json:"applicant_grade"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	TotalValueCents   int32  `json:"total_value_cents"`
	Status            string `json:"status"`
}

func (h *Handler) GetApprovalRequest(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	app, err := h.approvals.GetByToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.approvals.ValidateToken(app, token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalView{
		ApplicationNumber: app.ApplicationNumber,
		ApplicantName:     app.ApplicantName,
		ApplicantGrade:    app.ApplicantGrade,
		StartDate:         app.StartDate.Format(dateLayout),
		EndDate:           app.EndDate.Format(dateLayout),
		TotalValueCents:   app.TotalValueCents,
		Status:            string(app.Status),
	})
}

type decisionRequest struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

func (h *Handler) ApproveByToken(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	app, err := h.approvals.ApproveByToken(r.Context(), mux.Vars(r)["token"], req.Comments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, nil))
}

func (h *Handler) DeclineByToken(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	app, err := h.approvals.DeclineByToken(r.Context(), mux.Vars(r)["token"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, nil))
}

// Portal channel: the reviewer decides from their work queue with a
// session instead of an emailed token.

func (h *Handler) ApproveAsReviewer(w http.ResponseWriter, r *http.Request) {
	h.decideAsReviewer(w, r, true)
}

func (h *Handler) DeclineAsReviewer(w http.ResponseWriter, r *http.Request) {
	h.decideAsReviewer(w, r, false)
}

func (h *Handler) decideAsReviewer(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var app *domain.LoanApplication
	if approve {
		app, err = h.approvals.ApproveAsUser(r.Context(), user, id, req.Comments)
	} else {
		app, err = h.approvals.DeclineAsUser(r.Context(), user, id, req.Reason)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, nil))
}
