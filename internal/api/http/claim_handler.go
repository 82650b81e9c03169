package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"loandesk-backend/internal/domain"
)

func (h *Handler) GetClaimableSubmissions(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	submissions, err := h.claims.FindClaimableSubmissions(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

func (h *Handler) ClaimSubmission(w http.ResponseWriter, r *http.Request) {
	kind := domain.SubmissionKind(mux.Vars(r)["kind"])
	if kind != domain.SubmissionKindLoan && kind != domain.SubmissionKindTicket {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.claims.ClaimSubmission(r.Context(), user, kind, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
