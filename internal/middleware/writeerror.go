package middleware

import (
	"encoding/json"
	"net/http"

	svcerrors "github.com/payplaces/directory/pkg/errors"
)

type errorResponse struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// writeError renders code, message and details as the standard JSON
// error envelope.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError renders a *errors.ServiceError (or any error) as JSON.
func writeServiceError(w http.ResponseWriter, err error) {
	if svcErr, ok := svcerrors.As(err); ok {
		writeError(w, svcErr.HTTPStatus, string(svcErr.Kind), svcErr.Message, svcErr.Details)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
}
