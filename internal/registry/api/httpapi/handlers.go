// Package httpapi exposes the registry operations over a JSON HTTP API.
//
// The caller's wallet address arrives in the X-Wallet-Address header and
// is trusted as authentic; authenticating it is the gateway's job.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/linktrue/linktrue/internal/registry/domain"
	"github.com/linktrue/linktrue/internal/registry/service"
	"github.com/linktrue/linktrue/internal/registry/store"
	"github.com/linktrue/linktrue/internal/registry/username"
)

// CallerHeader carries the acting wallet address.
const CallerHeader = "X-Wallet-Address"

// Registry is the operation surface the handlers drive.
type Registry interface {
	Register(ctx context.Context, caller domain.Address, name string, keys, values []string) error
	AddItems(ctx context.Context, caller domain.Address, keys, values []string) error
	EditItem(ctx context.Context, caller domain.Address, key, newValue string) error
	RemoveItem(ctx context.Context, caller domain.Address, key string) error
	RemoveItems(ctx context.Context, caller domain.Address, keys []string) error
	ChangeUsername(ctx context.Context, caller domain.Address, newName string) error
	TransferUsername(ctx context.Context, caller, newAddress domain.Address) error
	ProfileByUsername(ctx context.Context, name string) ([]string, error)
	ProfileByAddress(ctx context.Context, addr domain.Address) ([]string, error)
}

// Handler serves the registry JSON API.
type Handler struct {
	registry Registry
}

// NewHandler creates a handler over the given registry.
func NewHandler(registry Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes returns the mux with every registry endpoint mounted.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/profile", h.handleRegister)
	mux.HandleFunc("POST /v1/profile/items", h.handleAddItems)
	mux.HandleFunc("PUT /v1/profile/items/{key}", h.handleEditItem)
	mux.HandleFunc("DELETE /v1/profile/items/{key}", h.handleRemoveItem)
	mux.HandleFunc("POST /v1/profile/items/remove", h.handleRemoveItems)
	mux.HandleFunc("POST /v1/profile/username", h.handleChangeUsername)
	mux.HandleFunc("POST /v1/profile/transfer", h.handleTransfer)
	mux.HandleFunc("GET /v1/profiles/username/{username}", h.handleProfileByUsername)
	mux.HandleFunc("GET /v1/profiles/address/{address}", h.handleProfileByAddress)
	return mux
}

type registerRequest struct {
	Username string   `json:"username"`
	Keys     []string `json:"keys"`
	Values   []string `json:"values"`
}

type itemsRequest struct {
	Keys   []string `json:"keys"`
	Values []string `json:"values"`
}

type editItemRequest struct {
	Value string `json:"value"`
}

type removeItemsRequest struct {
	Keys []string `json:"keys"`
}

type changeUsernameRequest struct {
	Username string `json:"username"`
}

type transferRequest struct {
	NewAddress string `json:"new_address"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.registry.Register(r.Context(), caller, req.Username, req.Keys, req.Values); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleAddItems(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req itemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.registry.AddItems(r.Context(), caller, req.Keys, req.Values); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEditItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req editItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.registry.EditItem(r.Context(), caller, r.PathValue("key"), req.Value); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	if err := h.registry.RemoveItem(r.Context(), caller, r.PathValue("key")); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveItems(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req removeItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.registry.RemoveItems(r.Context(), caller, req.Keys); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req changeUsernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.registry.ChangeUsername(r.Context(), caller, req.Username); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newAddress, err := domain.ParseAddress(req.NewAddress)
	if err != nil {
		writeOperationError(w, service.ErrInvalidAddress)
		return
	}
	if err := h.registry.TransferUsername(r.Context(), caller, newAddress); err != nil {
		writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProfileByUsername(w http.ResponseWriter, r *http.Request) {
	flat, err := h.registry.ProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": flat})
}

func (h *Handler) handleProfileByAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeOperationError(w, service.ErrAddressNotFound)
		return
	}
	flat, err := h.registry.ProfileByAddress(r.Context(), addr)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": flat})
}

func callerAddress(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr, err := domain.ParseAddress(r.Header.Get(CallerHeader))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "valid " + CallerHeader + " header is required"})
		return "", false
	}
	return addr, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// writeOperationError maps registry errors onto HTTP statuses. The error
// text is part of the operation contract and is returned verbatim.
func writeOperationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, username.ErrEmpty),
		errors.Is(err, username.ErrTooLong),
		errors.Is(err, username.ErrCharset),
		errors.Is(err, username.ErrReserved),
		errors.Is(err, service.ErrLengthMismatch),
		errors.Is(err, service.ErrEmptyKey),
		errors.Is(err, service.ErrEmptyValue),
		errors.Is(err, service.ErrEmptyNewValue),
		errors.Is(err, service.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUsernameNotFound),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, store.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrTargetHasUsername),
		errors.Is(err, service.ErrNothingToTransfer),
		errors.Is(err, store.ErrUsernameTaken),
		errors.Is(err, store.ErrDuplicateKey),
		errors.Is(err, store.ErrTooManyItems):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("registry operation: %v", err)
		writeJSON(w, status, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
