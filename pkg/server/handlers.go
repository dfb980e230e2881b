package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
)

// errorResponse is the JSON body for API errors.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	var jobNotFound *jobs.NotFoundError
	var polNotFound *policy.NotFoundError
	var transition *jobs.InvalidTransitionError
	var disabled *policy.DisabledError
	var validation *policy.ValidationError

	switch {
	case errors.As(err, &jobNotFound), errors.As(err, &polNotFound):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.As(err, &disabled):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
		Type:   jobs.JobType(r.URL.Query().Get("type")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	list, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := s.engine.CancelJob(r.Context(), jobID); err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// runRequest is the optional body for policy run requests.
type runRequest struct {
	DryRun    bool `json:"dry_run"`
	MaxEmails int  `json:"max_emails"`
	Force     bool `json:"force"`
}

// runResponse reports the job created for a policy run.
type runResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleRunPolicy(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	jobID, err := s.engine.TriggerManualCleanup(r.Context(), r.PathValue("id"), jobs.Params{
		DryRun:    req.DryRun,
		MaxEmails: req.MaxEmails,
		Force:     req.Force,
	})
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, runResponse{JobID: jobID})
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	list, err := s.store.ListExecutions(r.Context(), r.URL.Query().Get("policy_id"), limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
