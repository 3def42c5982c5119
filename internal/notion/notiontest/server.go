// Package notiontest provides an in-memory Notion API double for tests.
package notiontest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Page is a stored page with its raw property payloads.
type Page struct {
	ID         string
	Properties map[string]json.RawMessage
}

// Server fakes the database, query and page endpoints for one database.
type Server struct {
	*httptest.Server

	DatabaseID string
	Token      string
	Schema     map[string]string

	mu      sync.Mutex
	pages   []*Page
	calls   map[string]int
	failUID map[string]int
}

func NewServer(databaseID, token string) *Server {
	s := &Server{
		DatabaseID: databaseID,
		Token:      token,
		Schema: map[string]string{
			"Name": "title", "UID": "rich_text", "Status": "select", "Reviewer Name": "rich_text",
			"Review Date": "date", "Next Follow Up": "date", "Date Added": "date",
			"Platform": "select", "Socials": "rich_text",
		},
		calls:   make(map[string]int),
		failUID: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailCreate makes page creation for uid respond with status.
func (s *Server) FailCreate(uid string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUID[uid] = status
}

// Seed stores a page whose key property holds uid.
func (s *Server) Seed(keyProperty, uid string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.pages = append(s.pages, &Page{
		ID:         id,
		Properties: map[string]json.RawMessage{keyProperty: richText(uid)},
	})
	return id
}

func (s *Server) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, *p)
	}
	return out
}

// Calls returns how many requests hit an operation: "query", "create",
// "update" or "retrieve".
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
		return
	}
	if r.Header.Get("Notion-Version") == "" {
		writeError(w, http.StatusBadRequest, "missing_version", "Notion-Version header failed validation.")
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/databases/"+s.DatabaseID:
		s.count("retrieve")
		s.retrieve(w)
	case r.Method == http.MethodPost && r.URL.Path == "/databases/"+s.DatabaseID+"/query":
		s.count("query")
		s.query(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/pages":
		s.count("create")
		s.create(w, r)
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/pages/"):
		s.count("update")
		s.update(w, r, strings.TrimPrefix(r.URL.Path, "/pages/"))
	default:
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find object.")
	}
}

func (s *Server) count(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *Server) retrieve(w http.ResponseWriter) {
	props := make(map[string]any, len(s.Schema))
	for name, typ := range s.Schema {
		props[name] = map[string]string{"id": name, "type": typ}
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "database", "id": s.DatabaseID, "properties": props})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter struct {
			Property string `json:"property"`
			RichText struct {
				Equals string `json:"equals"`
			} `json:"rich_text"`
		} `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	s.mu.Lock()
	var results []map[string]any
	for _, p := range s.pages {
		if plainText(p.Properties[req.Filter.Property]) == req.Filter.RichText.Equals {
			results = append(results, map[string]any{"object": "page", "id": p.ID})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "results": results, "has_more": false})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Parent.DatabaseID != s.DatabaseID {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range req.Properties {
		if status, ok := s.failUID[plainText(raw)]; ok {
			writeError(w, status, "validation_error", "rejected by test server")
			return
		}
	}
	page := &Page{ID: uuid.NewString(), Properties: req.Properties}
	s.pages = append(s.pages, page)
	writeJSON(w, http.StatusOK, map[string]any{"object": "page", "id": page.ID})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, pageID string) {
	var req struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.ID == pageID {
			for name, raw := range req.Properties {
				p.Properties[name] = raw
			}
			writeJSON(w, http.StatusOK, map[string]any{"object": "page", "id": p.ID})
			return
		}
	}
	writeError(w, http.StatusNotFound, "object_not_found", "Could not find page.")
}

func richText(s string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"rich_text": []map[string]any{{"text": map[string]string{"content": s}}},
	})
	return raw
}

// plainText extracts the concatenated content of a title or rich_text payload.
func plainText(raw json.RawMessage) string {
	var prop struct {
		Title    []textItem `json:"title"`
		RichText []textItem `json:"rich_text"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &prop) != nil {
		return ""
	}
	var b strings.Builder
	for _, item := range append(prop.Title, prop.RichText...) {
		b.WriteString(item.Text.Content)
	}
	return b.String()
}

type textItem struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]any{"object": "error", "status": status, "code": code, "message": message})
}
