package http

import (
	"net/http"

	_ "eventsync/docs"
	"eventsync/internal/delivery/http/controllers"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the view server router with all routes.
func NewRouter(eventController *controllers.EventController, sessionController *controllers.SessionController) *http.ServeMux {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("GET /events", eventController.ListEvents)
	mux.HandleFunc("POST /events", eventController.CreateEvent)
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("PUT /events/{eventID}", eventController.UpdateEvent)
	mux.HandleFunc("DELETE /events/{eventID}", eventController.DeleteEvent)

	// Attendance
	mux.HandleFunc("POST /events/{eventID}/join", eventController.JoinEvent)
	mux.HandleFunc("POST /events/{eventID}/leave", eventController.LeaveEvent)

	// Session
	mux.HandleFunc("GET /session", sessionController.GetSession)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
