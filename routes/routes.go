package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/morhendos/padel-league/handlers"
	"github.com/morhendos/padel-league/middleware"
	"github.com/morhendos/padel-league/models"
)

// SetupRoutes mounts the full HTTP surface on the router.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	leagueHandler *handlers.LeagueHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	rankingHandler *handlers.RankingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize(string(models.RoleOrganizer), string(models.RoleAdmin))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/leagues", func(r chi.Router) {
		r.Get("/", leagueHandler.List)
		r.Get("/{leagueID}", leagueHandler.GetByID)
		r.Get("/{leagueID}/matches", matchHandler.ListByLeague)
		r.Get("/{leagueID}/rankings", rankingHandler.GetStandings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", leagueHandler.Create)
			r.Put("/{leagueID}", leagueHandler.Update)
			r.Delete("/{leagueID}", leagueHandler.Delete)
			r.Post("/{leagueID}/status", leagueHandler.UpdateStatus)
			r.Post("/{leagueID}/schedule", leagueHandler.GenerateSchedule)
			r.Delete("/{leagueID}/schedule", leagueHandler.ClearSchedule)
			r.Post("/{leagueID}/banner", leagueHandler.UploadBanner)
			r.Post("/{leagueID}/rankings/recalculate", rankingHandler.Recalculate)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", teamHandler.Create)
			r.Put("/{teamID}", teamHandler.Update)
			r.Delete("/{teamID}", teamHandler.Delete)
			r.Post("/{teamID}/join", teamHandler.JoinLeague)
			r.Post("/{teamID}/leave", teamHandler.LeaveLeague)
			r.Post("/{teamID}/logo", teamHandler.UploadLogo)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{matchID}/result", matchHandler.SubmitResult)
			r.Post("/{matchID}/confirm", matchHandler.ConfirmResult)
			r.Patch("/{matchID}/schedule", matchHandler.Reschedule)
		})
	})

	router.Get("/ws/leagues/{leagueID}", webSocketHandler.ServeLeague)
}
