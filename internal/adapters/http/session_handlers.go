package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

type createSessionRequest struct {
	Mode string `json:"mode"`
}

type editRequest struct {
	Text *string `json:"text"`
}

type editResponse struct {
	Revision   uint64                `json:"revision"`
	Statistics domain.TextStatistics `json:"statistics"`
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := rt.sessions.Create(domain.WritingMode(req.Mode))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+session.ID())
	writeJSON(w, http.StatusCreated, session.View())
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.Close(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) editSession(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	stats := session.Edit(*req.Text)
	writeJSON(w, http.StatusOK, editResponse{
		Revision:   session.Document().Revision,
		Statistics: stats,
	})
}

// fetchSuggestions blocks until the fetch settles. A failed fetch still
// answers 200; the failure is part of the returned pipeline state.
func (rt *Router) fetchSuggestions(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	_ = session.FetchSuggestions(r.Context())
	writeJSON(w, http.StatusOK, session.Pipeline().State())
}

func (rt *Router) retrySuggestions(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	_ = session.Pipeline().Retry(r.Context())
	writeJSON(w, http.StatusOK, session.Pipeline().State())
}

func (rt *Router) clearSuggestions(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	session.Pipeline().Clear()
	writeJSON(w, http.StatusOK, session.Pipeline().State())
}

func (rt *Router) applySuggestion(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if _, err := session.ApplySuggestion(r.PathValue("sid")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (rt *Router) dismissSuggestion(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if err := session.DismissSuggestion(r.PathValue("sid")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Pipeline().State())
}

func (rt *Router) sessionAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if rt.analyses == nil {
		writeError(w, http.StatusNotFound, "deep analysis is not enabled")
		return
	}

	stored, err := rt.analyses.LatestAnalysis(r.Context(), session.ID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no analysis yet")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
