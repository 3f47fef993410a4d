package routes

import (
	"log/slog"
	"net/http"

	_ "github.com/Dosada05/cue-club/docs" // swagger spec
	"github.com/Dosada05/cue-club/handlers"
	"github.com/Dosada05/cue-club/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Dependencies struct {
	AuthHandler      *handlers.AuthHandler
	BracketHandler   *handlers.BracketHandler
	WebSocketHandler *handlers.WebSocketHandler
	TokenParser      middleware.TokenParser
	Metrics          http.Handler
	AllowedOrigins   []string
	Logger           *slog.Logger
}

func SetupRoutes(router chi.Router, d Dependencies) {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Post("/auth/token", d.AuthHandler.Login)

	router.Get("/ws/tournaments/{tournamentID}", d.WebSocketHandler.ServeWs)

	router.Route("/tournaments/{tournamentID}/bracket", func(r chi.Router) {
		// Публичный просмотр сетки
		r.Get("/", d.BracketHandler.GetBracket)

		// Изменения только для персонала клуба
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.TokenParser))
			if d.Logger != nil {
				r.Use(middleware.Audit(d.Logger))
			}

			r.Post("/", d.BracketHandler.CreateDraw)
			r.Delete("/", d.BracketHandler.DeleteBracket)
			r.Post("/matches/{matchIndex}/winner", d.BracketHandler.RecordWinner)
			r.Delete("/matches/{matchIndex}/winner", d.BracketHandler.ResetMatch)
			r.Post("/advance", d.BracketHandler.AdvanceRound)
			r.Post("/rollback", d.BracketHandler.RollbackLastRound)
			r.Post("/regenerate", d.BracketHandler.RegenerateFrom)
			r.Put("/history/{round}/matches/{matchIndex}/winner", d.BracketHandler.EditHistoricalWinner)
			r.Post("/save", d.BracketHandler.Save)
			r.Post("/reveal", d.BracketHandler.StartReveal)
			r.Delete("/reveal", d.BracketHandler.CancelReveal)
		})
	})
}
