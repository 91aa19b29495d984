package auth

import (
	"context"
	"net/http"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler serves /api/v1/auth.
type Handler struct {
	Service *Service
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.ready(w) {
		decodeAndCall(w, r, http.StatusCreated, h.Service.Register)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.ready(w) {
		decodeAndCall(w, r, http.StatusOK, h.Service.Login)
	}
}

// Me returns the caller's profile. RequireAuth has already run.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.UnauthorizedError("Not authorized to access this route", nil))
		return
	}
	user, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, user)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
		return false
	}
	return true
}

// decodeAndCall decodes the body into In, runs call and writes its result
// in the data envelope.
func decodeAndCall[In, Out any](w http.ResponseWriter, r *http.Request, status int, call func(context.Context, In) (Out, error)) {
	var in In
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := call(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, status, out)
}
