package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pnct-tools/container-query/internal/agent"
	"github.com/pnct-tools/container-query/internal/domain"
)

const (
	serviceName    = "PNCT Container Query System"
	serviceVersion = "1.0.0"
	maxBodyBytes   = 64 << 10
)

// ContainerLooker is the minimal interface needed to run a lookup.
type ContainerLooker interface {
	Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

// trackedLooker is implemented by runners that execute lookups as workflows.
type trackedLooker interface {
	LookupTracked(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, string, error)
}

// QuestionAnswerer is the minimal interface needed to answer a free-text
// question.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) agent.Answer
}

// HandleRoot describes the service and its endpoints.
func HandleRoot(runner string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": serviceName,
			"version": serviceVersion,
			"runner":  runner,
			"endpoints": map[string]string{
				"container_query": "POST /container/query",
				"query_container": "POST /tools/query_container",
				"health":          "GET /health",
			},
		})
	}
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

type queryContainerRequest struct {
	ContainerID string `json:"container_id"`
	Intent      string `json:"intent"`
}

type queryContainerResponse struct {
	ContainerID string               `json:"container_id"`
	Intent      domain.Intent        `json:"intent"`
	Data        domain.ProjectedView `json:"data"`
	ScrapedAt   string               `json:"scraped_at"`
	WorkflowID  string               `json:"workflow_id,omitempty"`
}

// HandleQueryContainer runs one structured lookup.
func HandleQueryContainer(svc ContainerLooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryContainerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		containerID := strings.TrimSpace(req.ContainerID)
		if containerID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidContainerID, "container_id is required")
			return
		}
		intent, err := domain.ParseIntent(req.Intent)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidIntent, err.Error())
			return
		}

		var (
			result     domain.LookupResult
			workflowID string
		)
		if tracked, ok := svc.(trackedLooker); ok {
			result, workflowID, err = tracked.LookupTracked(r.Context(), containerID, intent)
		} else {
			result, err = svc.Lookup(r.Context(), containerID, intent)
		}
		if err != nil {
			status, code := lookupErrorStatus(err)
			writeError(w, status, code, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, queryContainerResponse{
			ContainerID: result.ContainerID,
			Intent:      result.Intent,
			Data:        result.Data,
			ScrapedAt:   result.ScrapedAt,
			WorkflowID:  workflowID,
		})
	}
}

type containerQueryRequest struct {
	Query string `json:"query"`
}

type containerQueryResponse struct {
	ContainerID *string              `json:"container_id"`
	Intent      *string              `json:"intent"`
	Response    string               `json:"response"`
	Success     bool                 `json:"success"`
	Error       *string              `json:"error"`
	RawData     *domain.LookupResult `json:"raw_data"`
}

// HandleContainerQuery answers a free-text question. Once the body parses the
// status is always 200; failures are reported in the payload.
func HandleContainerQuery(svc QuestionAnswerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req containerQueryRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "query is required")
			return
		}

		answer := svc.Answer(r.Context(), req.Query)
		resp := containerQueryResponse{
			ContainerID: optional(answer.ContainerID),
			Intent:      optional(string(answer.Intent)),
			Response:    answer.Text,
			Success:     answer.Success(),
			RawData:     answer.Result,
		}
		if answer.Err != nil {
			resp.Error = optional(answer.Err.Error())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleNotFound and HandleMethodNotAllowed keep router errors in the JSON
// error shape.
func HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func HandleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
