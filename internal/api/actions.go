package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
)

// sourceHTTP and sourceWebSocket tag actions with the host that submitted them.
const (
	sourceHTTP      = "http"
	sourceWebSocket = "websocket"
)

var errMalformedActionRequest = errors.New("body must be a single-key object like {\"addUser\":{\"input\":{...}}}")

// actionRecord is the wire form of an action.
type actionRecord struct {
	Input         json.RawMessage `json:"input"`
	Href          string          `json:"href"`
	Status        action.Status   `json:"status"`
	TimeRequested string          `json:"timeRequested"`
	TimeCompleted string          `json:"timeCompleted,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// actionBody wraps a record under its action name: {"addUser": {...}}.
func actionBody(a action.Action) map[string]actionRecord {
	input := a.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	rec := actionRecord{
		Input:         input,
		Href:          a.Href(),
		Status:        a.Status,
		TimeRequested: a.TimeRequested.UTC().Format(time.RFC3339),
		Error:         a.Error,
	}
	if a.TimeCompleted != nil {
		rec.TimeCompleted = a.TimeCompleted.UTC().Format(time.RFC3339)
	}
	return map[string]actionRecord{a.Name: rec}
}

func actionBodies(actions []action.Action) []map[string]actionRecord {
	out := make([]map[string]actionRecord, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionBody(a))
	}
	return out
}

// parseActionRequest extracts the action name and input from
// {"<name>": {"input": {...}}}. A missing input is treated as {}.
func parseActionRequest(body map[string]json.RawMessage) (string, json.RawMessage, error) {
	if len(body) != 1 {
		return "", nil, errMalformedActionRequest
	}
	for name, raw := range body {
		var envelope struct {
			Input json.RawMessage `json:"input"`
		}
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &envelope); err != nil {
				return "", nil, fmt.Errorf("%s must be an object with an input field", name)
			}
		}
		return name, envelope.Input, nil
	}
	return "", nil, errMalformedActionRequest
}

func knownAction(name string) bool {
	return slices.Contains(action.Names(), name)
}

// handleListActions returns every recorded action.
func (s *Server) handleListActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, actionBodies(s.dispatcher.List()))
}

// handleListActionsByName returns the recorded actions of one kind.
func (s *Server) handleListActionsByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !knownAction(name) {
		writeNotFound(w, "unknown action: "+name)
		return
	}
	writeJSON(w, http.StatusOK, actionBodies(s.dispatcher.ListByName(name)))
}

// handleRequestAction queues an action and answers 201 with its record.
// With ?wait=true the response is sent once the action has finished.
func (s *Server) handleRequestAction(w http.ResponseWriter, r *http.Request) {
	pathName := chi.URLParam(r, "name")
	if pathName != "" && !knownAction(pathName) {
		writeNotFound(w, "unknown action: "+pathName)
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	name, input, err := parseActionRequest(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if pathName != "" && name != pathName {
		writeBadRequest(w, fmt.Sprintf("body requests %s on the %s resource", name, pathName))
		return
	}

	req := action.Request{Name: name, Input: input, Source: sourceHTTP}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")) //nolint:errcheck // anything unparsable means false
	var a action.Action
	if wait {
		a, err = s.dispatcher.Perform(r.Context(), req)
	} else {
		a, err = s.dispatcher.Submit(r.Context(), req)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", a.Href())
	writeJSON(w, http.StatusCreated, actionBody(a))
}

// handleGetAction returns one action record.
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	a, err := s.dispatcher.Get(chi.URLParam(r, "name"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionBody(a))
}

// handleCancelAction cancels a queued action or forgets a finished one.
func (s *Server) handleCancelAction(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.Cancel(chi.URLParam(r, "name"), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
