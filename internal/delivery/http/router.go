package http

import (
	"net/http"

	"vehicle-service-scheduling/internal/delivery/http/handler"
	"vehicle-service-scheduling/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	timeSlotHandler    *handler.TimeSlotHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	timeSlotHandler *handler.TimeSlotHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		timeSlotHandler:    timeSlotHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Authenticated routes (customers and staff)
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	appointments := r.appointmentHandler
	protected.HandleFunc("/appointments", appointments.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}", appointments.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}/history", appointments.GetHistory).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}/cancel", appointments.CancelAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}/reschedule", appointments.RescheduleAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/customers/{id}/appointments", appointments.ListCustomerAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/slots/available", r.timeSlotHandler.ListAvailable).Methods(http.MethodGet)

	// Workshop floor (staff and admin)
	protected.Handle("/appointments/{id}/confirm", staffOnly(appointments.ConfirmAppointment)).Methods(http.MethodPost)
	protected.Handle("/appointments/{id}/start", staffOnly(appointments.StartAppointment)).Methods(http.MethodPost)
	protected.Handle("/appointments/{id}/complete", staffOnly(appointments.CompleteAppointment)).Methods(http.MethodPost)
	protected.Handle("/appointments/{id}/no-show", staffOnly(appointments.MarkNoShow)).Methods(http.MethodPost)
	protected.Handle("/appointments/{id}/assign", staffOnly(appointments.AssignEmployee)).Methods(http.MethodPost)

	// Administrative hard delete
	protected.Handle("/appointments/{id}", middleware.RequireAdmin(http.HandlerFunc(appointments.DeleteAppointment))).Methods(http.MethodDelete)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Slot management (admin)
	admin.HandleFunc("/slots", r.timeSlotHandler.CreateSlot).Methods(http.MethodPost)
	admin.HandleFunc("/slots/bulk", r.timeSlotHandler.BulkCreateSlots).Methods(http.MethodPost)
	admin.HandleFunc("/slots/materialize", r.timeSlotHandler.MaterializeSlots).Methods(http.MethodPost)
	admin.HandleFunc("/slots/{id}/availability", r.timeSlotHandler.SetAvailability).Methods(http.MethodPut)
	admin.HandleFunc("/business-hours", r.timeSlotHandler.ListBusinessHours).Methods(http.MethodGet)
	admin.HandleFunc("/business-hours", r.timeSlotHandler.UpsertBusinessHours).Methods(http.MethodPut)

	// Preflight requests only need to match a route for the CORS middleware to answer them
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func staffOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireStaff(h)
}
