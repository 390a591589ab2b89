package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"lexgate/internal/gateway"
	"lexgate/internal/logging"
	"lexgate/internal/types"
)

type healthResponse struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Version string         `json:"version"`
	Sources []types.Source `json:"sources"`
	Browser string         `json:"browser,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Service: s.opts.Service,
		Version: s.opts.Version,
		Sources: s.searcher.Sources(),
	}
	// The browser starts lazily, so "idle" is healthy.
	if s.opts.BrowserConnected != nil {
		resp.Browser = "idle"
		if s.opts.BrowserConnected() {
			resp.Browser = "connected"
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// searchBody is the wire form of a search. MaxResults is optional.
type searchBody struct {
	Query       string            `json:"query"`
	Source      string            `json:"source"`
	Credentials types.Credentials `json:"credentials"`
	MaxResults  int               `json:"maxResults"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body searchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		msg := "request body is not valid JSON"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		respondFailure(w, gateway.Describe(types.NewError(types.KindInvalidRequest, "api.decode", msg, err), types.Source(body.Source)))
		return
	}

	req := types.SearchRequest{
		Query:       body.Query,
		Source:      types.Source(body.Source),
		Credentials: body.Credentials,
		MaxResults:  s.clampMaxResults(body.MaxResults),
	}

	ctx := gateway.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	resp, err := s.searcher.HandleSearch(ctx, req)
	if err != nil {
		respondFailure(w, gateway.Describe(err, req.Source))
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// clampMaxResults applies the default for a missing value and the upper cap.
// Negative values pass through so validation rejects them.
func (s *Server) clampMaxResults(n int) int {
	switch {
	case n == 0:
		return s.opts.DefaultMaxResults
	case n > s.opts.MaxResultsCap:
		return s.opts.MaxResultsCap
	default:
		return n
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindInvalidRequest, types.KindUnsupportedSource:
		return http.StatusBadRequest
	case types.KindAuthenticationFailed:
		return http.StatusUnprocessableEntity
	case types.KindLaunchFailure:
		return http.StatusServiceUnavailable
	case types.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func respondFailure(w http.ResponseWriter, f gateway.Failure) {
	status := statusFor(f.Kind)
	if status >= http.StatusInternalServerError {
		logging.APIWarn("search failed with %d (%s): %s", status, f.Kind, f.Message)
	}
	respondJSON(w, status, f)
}

// respondJSON sends a JSON response with appropriate headers.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.APIWarn("encode response: %v", err)
	}
}
