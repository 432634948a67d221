package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pnct-tools/container-query/internal/domain"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidIntent      = "invalid_intent"
	codeInvalidContainerID = "invalid_container_id"
	codeContainerNotFound  = "container_not_found"
	codeUpstreamError      = "upstream_error"
	codeNetworkError       = "network_error"
	codeTimeout            = "timeout"
	codeCanceled           = "canceled"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeMethodNotAllowed   = "method_not_allowed"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// lookupErrorStatus maps a lookup failure to an HTTP status and error code.
// Exhausted retries report the status of the failure that was retried.
func lookupErrorStatus(err error) (int, string) {
	var network *domain.NetworkError
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return http.StatusBadRequest, codeInvalidContainerID
	case domain.KindNotFound:
		return http.StatusNotFound, codeContainerNotFound
	case domain.KindUpstream:
		return http.StatusBadGateway, codeUpstreamError
	case domain.KindNetwork:
		if errors.As(err, &network) && network.Timeout {
			return http.StatusGatewayTimeout, codeTimeout
		}
		return http.StatusServiceUnavailable, codeNetworkError
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, codeCanceled
	}
	return http.StatusInternalServerError, codeInternalError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
