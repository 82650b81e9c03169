package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"loandesk-backend/internal/security"
)

// NewRouter wires the public surface (guest submissions, emailed approval
// links, availability browsing, login) and the authenticated portal.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Logging)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Public surface.
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/guest/applications", h.CreateApplication).Methods(http.MethodPost)
	r.HandleFunc("/api/availability/check", h.CheckAvailability).Methods(http.MethodPost)
	r.HandleFunc("/api/assets/{id:[0-9]+}/calendar", h.GetAvailabilityCalendar).Methods(http.MethodGet)
	r.HandleFunc("/api/assets/alternatives", h.GetAlternativeAssets).Methods(http.MethodGet)

	// Emailed approval links carry their own single-use token.
	r.HandleFunc("/approval/{token}", h.GetApprovalRequest).Methods(http.MethodGet)
	r.HandleFunc("/approval/{token}/approve", h.ApproveByToken).Methods(http.MethodPost)
	r.HandleFunc("/approval/{token}/decline", h.DeclineByToken).Methods(http.MethodPost)

	// Portal, session required.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(Authenticate(tm)))
	api.HandleFunc("/applications", h.CreateApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id:[0-9]+}", h.GetApplication).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id:[0-9]+}/status", h.UpdateApplicationStatus).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id:[0-9]+}/extension", h.RequestExtension).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id:[0-9]+}/claim", h.ClaimApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id:[0-9]+}/items/{itemID:[0-9]+}/issue", h.RecordItemIssuance).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id:[0-9]+}/items/{itemID:[0-9]+}/return", h.RecordItemReturn).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id:[0-9]+}/utilization", h.GetUtilizationRate).Methods(http.MethodGet)
	api.HandleFunc("/review/{id:[0-9]+}/approve", h.ApproveAsReviewer).Methods(http.MethodPost)
	api.HandleFunc("/review/{id:[0-9]+}/decline", h.DeclineAsReviewer).Methods(http.MethodPost)
	api.HandleFunc("/submissions/claimable", h.GetClaimableSubmissions).Methods(http.MethodGet)
	api.HandleFunc("/submissions/{kind}/{id:[0-9]+}/claim", h.ClaimSubmission).Methods(http.MethodPost)
	api.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id:[0-9]+}/read", h.MarkNotificationRead).Methods(http.MethodPost)

	return r
}
