package routes

import (
	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Bracket   *handlers.BracketHandler
	Match     *handlers.MatchHandler
	Dispute   *handlers.DisputeHandler
	Evidence  *handlers.EvidenceHandler
	WebSocket *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize(middleware.RoleOrganizer)
	anyCaller := middleware.Authorize(middleware.RoleOrganizer, middleware.RoleParticipant)

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/bracket", h.Bracket.GetByTournament)
		r.Get("/matches", h.Match.ListByTournament)
		r.Get("/standings", h.Bracket.Standings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(organizerOnly).Post("/bracket", h.Bracket.Generate)
			r.With(organizerOnly).Get("/disputes", h.Dispute.ListByTournament)
		})
	})

	router.Get("/brackets/{bracketID}", h.Bracket.Get)

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(anyCaller).Post("/check-in", h.Match.CheckIn)
			r.With(anyCaller).Post("/results", h.Match.SubmitResult)
			r.With(organizerOnly).Post("/start", h.Match.Start)
			r.With(organizerOnly).Post("/cancel", h.Match.Cancel)
			if h.Evidence != nil {
				r.With(anyCaller).Post("/evidence", h.Evidence.Upload)
			}
		})
	})

	router.Route("/disputes/{disputeID}", func(r chi.Router) {
		r.Use(authenticate, organizerOnly)
		r.Get("/", h.Dispute.Get)
		r.Post("/review", h.Dispute.Review)
		r.Post("/resolve", h.Dispute.Resolve)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
