package http

import (
	"context"
	"encoding/json"
	"net/http"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/service"
)

type createItemRequest struct {
	AssetID  int32 `json:"asset_id"`
	Quantity int32 `json:"quantity"`
}

type createApplicationRequest struct {
	Guest               *domain.GuestContact `json:"guest,omitempty"`
	StartDate           string               `json:"start_date"`
	EndDate             string               `json:"end_date"`
	Location            string               `json:"location"`
	ReturnLocation      string               `json:"return_location"`
	Priority            string               `json:"priority"`
	SpecialInstructions string               `json:"special_instructions"`
	Items               []createItemRequest  `json:"items"`
}

type applicationResponse struct {
	Application *domain.LoanApplication `json:"application"`
	Items       []domain.LoanItem       `json:"items,omitempty"`
	IsGuest     bool                    `json:"is_guest"`
	// RoutingError is set when the application was created but could not
	// be routed to an approver; the submission itself succeeded.
	RoutingError string `json:"routing_error,omitempty"`
}

func newApplicationResponse(app *domain.LoanApplication, items []domain.LoanItem) applicationResponse {
	return applicationResponse{Application: app, Items: items, IsGuest: app.Applicant.IsGuest()}
}

// CreateApplication serves both channels: authenticated sessions submit on
// their own account, anonymous requests must carry guest contact details.
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	input := service.CreateApplicationInput{
		Location:            req.Location,
		ReturnLocation:      req.ReturnLocation,
		Priority:            domain.Priority(req.Priority),
		SpecialInstructions: req.SpecialInstructions,
	}

	var err error
	if input.StartDate, err = parseDate(req.StartDate, "start_date"); err != nil {
		writeError(w, err)
		return
	}
	if input.EndDate, err = parseDate(req.EndDate, "end_date"); err != nil {
		writeError(w, err)
		return
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, service.CreateItemInput{AssetID: it.AssetID, Quantity: it.Quantity})
	}

	if claims := sessionFrom(r.Context()); claims != nil {
		input.Applicant = domain.AuthenticatedApplicant(claims.UserID)
	} else if req.Guest != nil {
		input.Applicant = domain.GuestApplicant(*req.Guest)
	} else {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	app, items, err := h.apps.CreateApplication(r.Context(), input)
	if err != nil && app == nil {
		writeError(w, err)
		return
	}

	resp := newApplicationResponse(app, items)
	if err != nil {
		resp.RoutingError = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	app, items, err := h.apps.GetApplication(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, items))
}

type extensionRequest struct {
	NewEndDate    string `json:"new_end_date"`
	Justification string `json:"justification"`
}

func (h *Handler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req extensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	newEnd, err := parseDate(req.NewEndDate, "new_end_date")
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := h.apps.RequestExtension(r.Context(), id, newEnd, req.Justification)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, nil))
}

type statusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
	Note   string                   `json:"note"`
}

func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	app, err := h.apps.UpdateStatus(r.Context(), id, req.Status, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app, nil))
}

func (h *Handler) ClaimApplication(w http.ResponseWriter, r *http.Request) {
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
	if err := h.apps.ClaimGuestApplication(r.Context(), id, user); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type itemConditionRequest struct {
	Condition   string `json:"condition"`
	Accessories string `json:"accessories"`
}

func (h *Handler) RecordItemIssuance(w http.ResponseWriter, r *http.Request) {
	h.recordItemCondition(w, r, h.apps.RecordItemIssuance)
}

func (h *Handler) RecordItemReturn(w http.ResponseWriter, r *http.Request) {
	h.recordItemCondition(w, r, h.apps.RecordItemReturn)
}

func (h *Handler) recordItemCondition(w http.ResponseWriter, r *http.Request, record func(ctx context.Context, applicationID, itemID int32, condition, accessories string) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req itemConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	if err := record(r.Context(), id, itemID, req.Condition, req.Accessories); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
