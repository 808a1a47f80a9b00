package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/authz"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps an error onto the taxonomy status code and a structured
// body. Internal detail is logged, never returned to the client.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    string(apperr.KindOf(err)),
			"message": apperr.PublicMessage(err),
		},
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "invalid request body")
	}
	return nil
}

// requestScope resolves the location filter for a list/detail request from
// the requester identity and the optional location_id query parameter.
func requestScope(r *http.Request) (scope.Filter, error) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		return scope.Filter{}, apperr.E(apperr.KindUnauthorized, "authentication required")
	}
	return scope.Resolve(ident, r.URL.Query().Get("location_id")), nil
}

func requesterID(r *http.Request) (string, error) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		return "", apperr.E(apperr.KindUnauthorized, "authentication required")
	}
	return ident.UserID, nil
}
