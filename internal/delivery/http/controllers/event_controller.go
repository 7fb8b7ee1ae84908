package controllers

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"eventsync/internal/delivery/http/helpers"
	"eventsync/internal/domain"
	"eventsync/internal/filter"
)

// maxUploadMemory bounds the multipart form kept in memory; larger parts spill to disk.
const maxUploadMemory = 10 << 20

// EventReader is the read side of the local store.
type EventReader interface {
	View(c filter.Criteria) []*domain.Event
	Get(id string) (*domain.Event, bool)
}

// EventWriter issues mutations to the remote service.
type EventWriter interface {
	Identity() domain.Identity
	Create(ctx context.Context, fields domain.EventFields) (*domain.Event, error)
	Update(ctx context.Context, id string, fields domain.EventFields) (*domain.Event, error)
	Delete(ctx context.Context, id string) error
	Join(ctx context.Context, id string) (*domain.Event, error)
	Leave(ctx context.Context, id string) (*domain.Event, error)
}

// EventRequest is the request body for POST /events and PUT /events/{eventID}. The same
// fields are accepted as multipart form values, with an optional "image" file.
type EventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Category    string `json:"category"`

	image *domain.ImageUpload
}

// Validate implements Validator.
func (e EventRequest) Validate() []string {
	return e.fields().Validate()
}

func (e EventRequest) fields() domain.EventFields {
	return domain.EventFields{
		Title:       strings.TrimSpace(e.Title),
		Description: e.Description,
		Date:        domain.Date(strings.TrimSpace(e.Date)),
		Category:    domain.Category(strings.TrimSpace(e.Category)),
		Image:       e.image,
	}
}

// EventResponse is an event plus the display values derived for the current identity.
// swagger:model EventResponse
type EventResponse struct {
	*domain.Event
	CreatorName   string `json:"creatorName"`
	AttendeeCount int    `json:"attendeeCount"`
	Attending     bool   `json:"attending"`
	OwnedByMe     bool   `json:"ownedByMe"`
}

// EventSuccessResponse is the success envelope for single-event responses.
type EventSuccessResponse struct {
	Data  EventResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsSuccessResponse is the success envelope for GET /events.
type ListEventsSuccessResponse struct {
	Data  []EventResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger *slog.Logger
	Reader EventReader
	Writer EventWriter
}

func NewEventController(logger *slog.Logger, reader EventReader, writer EventWriter) *EventController {
	return &EventController{
		Logger: logger,
		Reader: reader,
		Writer: writer,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Returns the locally synchronized events in store order, optionally filtered by category and exact date.
// @Tags events
// @Produce json
// @Param category query string false "Conference, Workshop or Meetup"
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains the matching events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := filter.ParseCriteria(q.Get("category"), q.Get("date"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	events := c.Reader.View(criteria)
	me := c.Writer.Identity()
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, present(e, me))
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns one event from the local store.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	e, ok := c.Reader.Get(eventID)
	if !ok {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, present(e, c.Writer.Identity()))
}

// CreateEvent godoc
// @Summary Create an event
// @Description Sends a create request to the event service. The event appears locally once the service confirms it. Guests cannot create events.
// @Tags events
// @Accept json
// @Accept mpfd
// @Produce json
// @Param event body EventRequest true "Event fields"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_error"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	req, cleanup, ok := c.decodeEvent(w, r)
	if !ok {
		return
	}
	defer cleanup()
	e, err := c.Writer.Create(r.Context(), req.fields())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, present(e, c.Writer.Identity()))
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Replaces the event's fields. Only the creator may update an event.
// @Tags events
// @Accept json
// @Accept mpfd
// @Produce json
// @Param eventID path string true "Event ID"
// @Param event body EventRequest true "Event fields"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_error"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	req, cleanup, ok := c.decodeEvent(w, r)
	if !ok {
		return
	}
	defer cleanup()
	e, err := c.Writer.Update(r.Context(), eventID, req.fields())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, present(e, c.Writer.Identity()))
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Only the creator may delete an event.
// @Tags events
// @Param eventID path string true "Event ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if err := c.Writer.Delete(r.Context(), eventID); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinEvent godoc
// @Summary Join an event
// @Description Adds the current identity to the attendees. Guests may join.
// @Tags attendees
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event with its new attendee list"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_error"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /events/{eventID}/join [post]
func (c *EventController) JoinEvent(w http.ResponseWriter, r *http.Request) {
	c.attendance(w, r, c.Writer.Join)
}

// LeaveEvent godoc
// @Summary Leave an event
// @Description Removes the current identity from the attendees. Guests may leave.
// @Tags attendees
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event with its new attendee list"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_error"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /events/{eventID}/leave [post]
func (c *EventController) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	c.attendance(w, r, c.Writer.Leave)
}

func (c *EventController) attendance(w http.ResponseWriter, r *http.Request, call func(context.Context, string) (*domain.Event, error)) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	e, err := call(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, present(e, c.Writer.Identity()))
}

// decodeEvent reads a JSON or multipart body. cleanup releases the uploaded file, if any.
func (c *EventController) decodeEvent(w http.ResponseWriter, r *http.Request) (EventRequest, func(), bool) {
	var req EventRequest
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return req, noop, false
		}
		return req, noop, true
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return req, noop, false
	}
	req.Title = r.FormValue("title")
	req.Description = r.FormValue("description")
	req.Date = r.FormValue("date")
	req.Category = r.FormValue("category")
	if !helpers.ValidateOnly(w, req) {
		return req, noop, false
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, noop, true
	case err != nil:
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return req, noop, false
	}
	req.image = &domain.ImageUpload{Filename: header.Filename, Content: file}
	return req, func() { _ = file.Close() }, true
}

func (c *EventController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := helpers.StatusFor(err)
	if status >= http.StatusInternalServerError {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	helpers.WriteJSONError(w, status, code, err.Error())
}

func present(e *domain.Event, me domain.Identity) EventResponse {
	return EventResponse{
		Event:         e,
		CreatorName:   e.CreatorName(),
		AttendeeCount: len(e.Attendees),
		Attending:     e.HasAttendee(me.ID),
		OwnedByMe:     e.OwnedBy(me),
	}
}
