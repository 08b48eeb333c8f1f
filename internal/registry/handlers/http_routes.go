package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON payload of every failed HTTP request.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RegisterRoutes mounts the REST resources of the registry on mux. Every route
// calls the matching RegistryServer method so both transports share one path.
func (h *RegistryHandler) RegisterRoutes(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/accounts", handle(http.StatusCreated, true, nil, h.RegisterAccount)},
		{http.MethodGet, "/v1/accounts/{id}", handle(http.StatusOK, false,
			func(r *AccountRequest, p map[string]string) { r.AccountID = p["id"] }, h.GetAccount)},
		{http.MethodPatch, "/v1/accounts/{id}/status", handle(http.StatusOK, true,
			func(r *SetAccountStatusRequest, p map[string]string) { r.AccountID = p["id"] }, h.SetAccountStatus)},
		{http.MethodPost, "/v1/candidates", handle(http.StatusCreated, true, nil, h.InviteCandidate)},
		{http.MethodGet, "/v1/candidates/{id}", handle(http.StatusOK, false,
			func(r *CandidateRequest, p map[string]string) { r.CandidateID = p["id"] }, h.GetCandidate)},
		{http.MethodPost, "/v1/candidates/{id}/verify", handle(http.StatusOK, true,
			func(r *VerifyCandidateRequest, p map[string]string) { r.CandidateID = p["id"] }, h.VerifyCandidate)},
		{http.MethodPatch, "/v1/candidates/{id}/status", handle(http.StatusOK, true,
			func(r *SetCandidateStatusRequest, p map[string]string) { r.CandidateID = p["id"] }, h.SetCandidateStatus)},
		{http.MethodGet, "/v1/candidates/{id}/history", handle(http.StatusOK, false,
			func(r *CandidateRequest, p map[string]string) { r.CandidateID = p["id"] }, h.ListTimeline)},
		{http.MethodPost, "/v1/candidates/{id}/history", handle(http.StatusCreated, true,
			func(r *AppendEntryRequest, p map[string]string) { r.CandidateID = p["id"] }, h.AppendEntry)},
		{http.MethodGet, "/v1/candidates/{id}/history/{entry_id}", handle(http.StatusOK, false,
			func(r *EntryRequest, p map[string]string) {
				r.CandidateID, r.EntryID = p["id"], p["entry_id"]
			}, h.GetEntry)},
		{http.MethodPatch, "/v1/candidates/{id}/history/{entry_id}", handle(http.StatusOK, true,
			func(r *EditEntryNotesRequest, p map[string]string) {
				r.CandidateID, r.EntryID = p["id"], p["entry_id"]
			}, h.EditEntryNotes)},
		{http.MethodDelete, "/v1/candidates/{id}/history/{entry_id}", handle(http.StatusNoContent, false,
			func(r *EntryRequest, p map[string]string) {
				r.CandidateID, r.EntryID = p["id"], p["entry_id"]
			}, h.DeleteEntry)},
		{http.MethodPost, "/v1/candidates/{id}/history/{entry_id}/comments", handle(http.StatusCreated, true,
			func(r *AddCommentRequest, p map[string]string) {
				r.CandidateID, r.EntryID = p["id"], p["entry_id"]
			}, h.AddComment)},
		{http.MethodDelete, "/v1/candidates/{id}/history/{entry_id}/comments/{comment_id}", handle(http.StatusNoContent, false,
			func(r *DeleteCommentRequest, p map[string]string) {
				r.CandidateID, r.EntryID, r.CommentID = p["id"], p["entry_id"], p["comment_id"]
			}, h.DeleteComment)},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// Health answers 200 while the repository is reachable.
func (h *RegistryHandler) Health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handle decodes the optional JSON body into Req, applies path parameters and
// writes the Resp of call. Path parameters override body fields.
func handle[Req, Resp any](
	success int,
	body bool,
	bind func(*Req, map[string]string),
	call func(context.Context, *Req) (*Resp, error),
) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		req := new(Req)
		if body {
			if err := decodeBody(w, r, req); err != nil {
				writeError(w, newStatus(codes.InvalidArgument, e.KindInvalidInput, "malformed request body"))
				return
			}
		}
		if bind != nil {
			bind(req, params)
		}
		resp, err := call(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		if success == http.StatusNoContent {
			w.WriteHeader(success)
			return
		}
		writeJSON(w, success, resp)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a gRPC status as the HTTP status the gateway would pick.
func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), ErrorBody{
		Kind:    KindFromStatus(st),
		Message: st.Message(),
	})
}
