package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/payplaces/directory/internal/rpc"
)

// rpcHandler decodes one {method, params, auth} request body and
// returns the dispatcher's Response verbatim; the dispatcher itself
// always produces a well-formed body, so this layer never maps errors.
func rpcHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, rpc.Response{
				Error: &rpc.Error{Code: "invalid_input", Message: "malformed request body"},
			})
			return
		}

		resp := deps.Dispatcher.Handle(r.Context(), req)
		writeJSON(w, http.StatusOK, resp)
	}
}
