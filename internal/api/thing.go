package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

const webThingContext = "https://webthings.io/schemas"

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type propertyDescription struct {
	lock.PropertyDescription
	Links []link `json:"links"`
}

type actionDescription struct {
	action.Metadata
	Links []link `json:"links"`
}

// ThingDescription is the document served at "/".
type ThingDescription struct {
	Context     string                         `json:"@context"`
	Type        []string                       `json:"@type"`
	ID          string                         `json:"id"`
	Title       string                         `json:"title"`
	Description string                         `json:"description,omitempty"`
	Properties  map[string]propertyDescription `json:"properties"`
	Actions     map[string]actionDescription   `json:"actions"`
	Links       []link                         `json:"links"`
}

// thingDescription builds the Thing Description. wsBase is the websocket
// URL advertised as the alternate link ("" to omit it).
func (s *Server) thingDescription(wsBase string) ThingDescription {
	props := make(map[string]propertyDescription)
	for name, desc := range lock.PropertyDescriptions() {
		props[name] = propertyDescription{
			PropertyDescription: desc,
			Links:               []link{{Rel: "property", Href: "/properties/" + name}},
		}
	}

	actions := make(map[string]actionDescription)
	for name, meta := range action.Descriptions() {
		actions[name] = actionDescription{
			Metadata: meta,
			Links:    []link{{Rel: "action", Href: "/actions/" + name}},
		}
	}

	types := s.thing.Types
	if types == nil {
		types = []string{}
	}

	links := []link{
		{Rel: "properties", Href: "/properties"},
		{Rel: "actions", Href: "/actions"},
	}
	if wsBase != "" {
		links = append(links, link{Rel: "alternate", Href: wsBase})
	}

	return ThingDescription{
		Context:     webThingContext,
		Type:        types,
		ID:          s.thing.ID,
		Title:       s.thing.Title,
		Description: s.thing.Description,
		Properties:  props,
		Actions:     actions,
		Links:       links,
	}
}

// handleThing serves the Thing Description.
func (s *Server) handleThing(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	path := s.wsCfg.Path
	if path == "" {
		path = "/ws"
	}
	writeJSON(w, http.StatusOK, s.thingDescription(scheme+"://"+r.Host+path))
}
