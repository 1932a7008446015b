package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"ms-ticketshop/internal/apperrors"
)

// ErrorBody is the JSON shape of every error answer.
type ErrorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status and writes the public part of it.
// Internal details stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: apperrors.PublicMessage(err)}

	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		body.Code = ve.Code
		body.Fields = ve.Fields
	}
	_ = WriteJSON(w, apperrors.HTTPStatus(err), body)
}
