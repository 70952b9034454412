package httpapi

import (
	"net/http"
)

type messageRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// language prefers the widget's selection over the browser header.
func (in messageRequest) language(r *http.Request) string {
	if in.Language != "" {
		return in.Language
	}
	return r.Header.Get("Accept-Language")
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		writeError(w, r, errNoAssistant)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Assistant.Languages())
}

func (s *Server) handleAssistantMessage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		writeError(w, r, errNoAssistant)
		return
	}
	var in messageRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.deps.Assistant.Reply(r.Context(), accountFrom(r.Context()).ID, in.Text, in.language(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		writeError(w, r, errNoAssistant)
		return
	}
	var in messageRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	text := s.deps.Assistant.Translate(r.Context(), in.Text, in.language(r))
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
