package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/agenda/internal/server/services"
)

type createEventRequest struct {
	Title       string `json:"title"`
	Time        string `json:"time"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type updateEventRequest struct {
	Title       *string `json:"title"`
	Time        *string `json:"time"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"isCompleted"`
}

// parseDate accepts either a full RFC 3339 timestamp or a plain calendar day.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t, nil
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		date = d
	}

	event, err := s.events.Create(r.Context(), userIDFromContext(r.Context()), services.CreateEventRequest{
		Title:       req.Title,
		Time:        req.Time,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusCreated, map[string]any{"success": true, "event": event})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time

	if v := r.URL.Query().Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		to = &t
	}

	events, err := s.events.ListByOwner(r.Context(), userIDFromContext(r.Context()), from, to)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "events": events})
}

func (s *Server) handleListEventsByDate(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.events.ListByDate(r.Context(), userIDFromContext(r.Context()), day)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "events": events})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetByID(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "event": event})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	update := services.UpdateEventRequest{
		Title:       req.Title,
		Time:        req.Time,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		update.Date = &d
	}

	event, err := s.events.Update(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), update)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "event": event})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleToggleEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.ToggleCompletion(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "event": event})
}
