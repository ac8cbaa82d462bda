package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agenceo/agenceo/modules/crm/services"
	"github.com/agenceo/agenceo/pkg/httpapi"
	"github.com/agenceo/agenceo/pkg/serrors"
)

// ActionsController exposes the mutation core over a uniform action-dispatch
// surface: one POST endpoint per resource, the payload names the action.
type ActionsController struct {
	agencies     *services.AgencyService
	entities     *services.EntityService
	contacts     *services.ContactService
	interactions *services.InteractionService
	config       *services.ConfigService
	profile      *services.ProfileService
	users        *services.UserService
}

func NewActionsController(
	agencies *services.AgencyService,
	entities *services.EntityService,
	contacts *services.ContactService,
	interactions *services.InteractionService,
	config *services.ConfigService,
	profile *services.ProfileService,
	users *services.UserService,
) *ActionsController {
	return &ActionsController{
		agencies:     agencies,
		entities:     entities,
		contacts:     contacts,
		interactions: interactions,
		config:       config,
		profile:      profile,
		users:        users,
	}
}

func (c *ActionsController) Register(r *mux.Router) {
	api := r.PathPrefix("/api/actions").Subrouter()
	api.HandleFunc("/agencies", dispatch(c.agencies.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/entities", dispatch(c.entities.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/contacts", dispatch(c.contacts.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/interactions", dispatch(c.interactions.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/config", dispatch(c.config.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/profile", dispatch(c.profile.HandleAction)).Methods(http.MethodPost)
	api.HandleFunc("/users", c.handleUserAction).Methods(http.MethodPost)
}

// dispatch adapts a typed HandleAction into an HTTP handler: decode, run,
// write the result or the classified error.
func dispatch[Req any, Res any](handle func(context.Context, Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := httpapi.DecodeJSON(r, &req); err != nil {
			_ = httpapi.WriteServiceError(w, err)
			return
		}
		res, err := handle(r.Context(), req)
		if err != nil {
			_ = httpapi.WriteServiceError(w, err)
			return
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, res)
	}
}

type userActionRequest struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
}

func (c *ActionsController) handleUserAction(w http.ResponseWriter, r *http.Request) {
	var req userActionRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	if req.Action != "delete_user" {
		_ = httpapi.WriteServiceError(w, serrors.ActionRequired())
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		_ = httpapi.WriteServiceError(w, serrors.InvalidPayload("user_id must be a uuid"))
		return
	}
	res, err := c.users.DeleteUser(r.Context(), req.RequestID, targetID)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}
