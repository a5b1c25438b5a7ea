package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/eventservice"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/render"
	"github.com/starford/lorekeeper/internal/timeline"
)

// Handler holds API route handlers.
type Handler struct {
	svc *eventservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *eventservice.Service) *Handler {
	return &Handler{svc: svc}
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// tagsParam accepts repeated ?tag= values and comma-separated lists.
func tagsParam(r *http.Request) []string {
	var tags []string
	for _, v := range r.URL.Query()["tag"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func decodeEvent(w http.ResponseWriter, r *http.Request) (EventRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return req, false
	}
	return req, true
}

// ListEvents handles GET /api/events.
//
//	@Summary		Query timeline events
//	@Tags			events
//	@Produce		json
//	@Param			year				query		int		false	"Restrict to one year shard"
//	@Param			start				query		string	false	"Inclusive start date (YYYY-MM-DD)"
//	@Param			end					query		string	false	"Inclusive end date (YYYY-MM-DD)"
//	@Param			tag					query		string	false	"Match any of these tags (repeatable)"
//	@Param			include_archived	query		bool	false	"Include archived events"
//	@Success		200					{object}	EventListResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := timeline.Query{
		StartDate:       q.Get("start"),
		EndDate:         q.Get("end"),
		Tags:            tagsParam(r),
		IncludeArchived: boolParam(r, "include_archived"),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("year must be an integer"))
			return
		}
		query.Year = year
	}

	events, err := h.svc.QueryEvents(r.Context(), query)
	if err != nil {
		writeServiceError(w, "query events", err)
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events, Total: len(events)})
}

// AddEvent handles POST /api/events.
//
//	@Summary		Append an event to the timeline
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EventRequest	true	"Event to add"
//	@Success		201		{object}	models.TimelineEvent
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	stored, err := h.svc.AddEvent(r.Context(), req.Event(models.SourceUserEntry))
	if err != nil {
		writeServiceError(w, "add event", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ArchiveEvent handles POST /api/events/{id}/archive.
//
//	@Summary		Archive an event
//	@Tags			events
//	@Produce		json
//	@Param			id	path		string	true	"Event id"
//	@Success		200	{object}	models.TimelineEvent
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id}/archive [post]
func (h *Handler) ArchiveEvent(w http.ResponseWriter, r *http.Request) {
	archived, err := h.svc.ArchiveEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "archive event", err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

// CorrectEvent handles POST /api/events/{id}/correct.
//
//	@Summary		Archive an event and append its correction
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Event id"
//	@Param			body	body		EventRequest	true	"Corrected event"
//	@Success		201		{object}	models.TimelineEvent
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id}/correct [post]
func (h *Handler) CorrectEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	corrected := req.Event("")
	if corrected.ID == "" {
		corrected.ID = id
	}
	stored, err := h.svc.CorrectEvent(r.Context(), id, corrected)
	if err != nil {
		writeServiceError(w, "correct event", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across events
//	@Tags			search
//	@Produce		json
//	@Param			q					query		string	true	"Search query"
//	@Param			limit				query		int		false	"Max results"
//	@Param			include_archived	query		bool	false	"Include archived events"
//	@Success		200					{object}	SearchResponse
//	@Failure		400					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit, boolParam(r, "include_archived"))
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		Tag frequencies
//	@Tags			search
//	@Produce		json
//	@Param			include_archived	query		bool	false	"Count archived events"
//	@Success		200					{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.TagCounts(r.Context(), boolParam(r, "include_archived"))
	if err != nil {
		writeServiceError(w, "tag counts", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// MonthArc handles GET /api/arcs/month.
//
//	@Summary		Compose the monthly arc
//	@Tags			arcs
//	@Produce		json,plain,html
//	@Param			start	query	string	false	"Range start (YYYY-MM-DD), defaults to the current month"
//	@Param			end		query	string	false	"Range end (YYYY-MM-DD)"
//	@Param			format	query	string	false	"Output format"	Enums(markdown, compressed, html, json)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/arcs/month [get]
func (h *Handler) MonthArc(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := optionalDate(q.Get("start"))
	if err != nil {
		writeServiceError(w, "month arc", err)
		return
	}
	end, err := optionalDate(q.Get("end"))
	if err != nil {
		writeServiceError(w, "month arc", err)
		return
	}

	format := q.Get("format")
	if format == render.FormatTerminal {
		writeServiceError(w, "month arc", fmt.Errorf("%w: format %q is not served over HTTP", apperr.ErrInvalidInput, format))
		return
	}

	a, err := h.svc.MonthArc(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, "month arc", err)
		return
	}
	body, contentType, err := render.Render(a, format)
	if err != nil {
		writeServiceError(w, "month arc", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return timeline.ParseDate(s)
}
