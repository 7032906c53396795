package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

func (s *Server) setupRoutes() {
	b := s.backends
	loc := s.config.Storage.Location()

	registrar := workflow.NewRegistrar(b.Identities)
	attendance := workflow.NewAttendance(b.Identities, b.Ledger, loc)
	deletion := workflow.NewDeletion(b.Identities, b.Ledger)

	identitiesHandler := handlers.NewIdentitiesHandler(b.Identities, registrar, deletion)
	attendanceHandler := handlers.NewAttendanceHandler(attendance)
	recordsHandler := handlers.NewRecordsHandler(b.Ledger, loc)
	detectHandler := handlers.NewDetectHandler(b.Detector)

	// Health check (no session required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.WithSession(s.sessionManager))

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Register)
		r.Get("/identities/{name}/image", identitiesHandler.Image)
		r.Delete("/identities/{name}", identitiesHandler.RequestDeletion)

		// Two-phase deletion
		r.Post("/deletions/{token}", identitiesHandler.ConfirmDeletion)
		r.Delete("/deletions/{token}", identitiesHandler.CancelDeletion)

		// Attendance
		r.Post("/attendance", attendanceHandler.Attempt)

		// Ledger
		r.Get("/records", recordsHandler.List)
		r.Get("/records/export", recordsHandler.Export)
		r.Get("/stats", recordsHandler.Stats)

		// Detection
		r.Post("/detect", detectHandler.Detect)
	})
}
