package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/plans"
	"github.com/humwire/humwire/engine/wiring"
)

const maxBody = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

var errBadRequest = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst, rejecting unknown fields and bodies
// over maxBody.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusOf maps an error to its HTTP status and response body.
func statusOf(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	switch {
	case errors.Is(err, errBadRequest):
		body.Kind = "bad_request"
		return http.StatusBadRequest, body
	case errors.Is(err, wiring.ErrUnknownMode):
		body.Kind = "unknown_mode"
		return http.StatusUnprocessableEntity, body
	case domain.Kind(err) != "":
		body.Kind = domain.Kind(err)
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, plans.ErrEmptyPlan):
		body.Kind = "empty_plan"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, plans.ErrInvalidID):
		body.Kind = "invalid_id"
		return http.StatusBadRequest, body
	case errors.Is(err, plans.ErrNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Kind: "internal"}
}
