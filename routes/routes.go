package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/swiss-tournament/handlers"
	"github.com/Dosada05/swiss-tournament/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	playerHandler *handlers.PlayerHandler,
	rankingHandler *handlers.RankingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)
	organizerOnly := middleware.Authorize(middleware.RoleAdmin, middleware.RoleOrganizer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Веб-сокеты живут без таймаута запроса
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/players", func(r chi.Router) {
			r.Get("/{playerID}", playerHandler.GetByIDHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, organizerOnly)
				r.Post("/", playerHandler.CreateHandler)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournamentHandler.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, organizerOnly)
				r.Post("/", tournamentHandler.CreateHandler)
			})

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Get("/matches", tournamentHandler.ListTournamentMatchesHandler)
				r.Get("/classification", rankingHandler.ClassificationHandler)
				r.Get("/ranking-details", rankingHandler.RankingDetailsHandler)

				r.Group(func(r chi.Router) {
					r.Use(authenticate, organizerOnly)
					r.Post("/players", tournamentHandler.RegisterPlayerHandler)
					r.Post("/rounds", tournamentHandler.GenerateRoundHandler)
					r.Post("/classification/archive", rankingHandler.ArchiveHandler)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", matchHandler.GetByIDHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, organizerOnly)
				r.Put("/result", matchHandler.SubmitResultHandler)
			})
		})
	})
}
