package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetProperties returns every property value.
func (s *Server) handleGetProperties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.device.Properties())
}

// handleGetProperty returns {name: value} for one property.
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	value, err := s.device.Property(name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: value})
}

// handlePutProperty applies a body of the form {name: value} and echoes
// the property's new value.
func (s *Server) handlePutProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	raw, ok := body[name]
	if !ok {
		// Unknown names are 404 regardless of body shape.
		if _, err := s.device.Property(name); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeBadRequest(w, "body must contain "+name)
		return
	}

	if err := s.device.SetProperty(name, raw); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	value, err := s.device.Property(name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: value})
}
