package routes

import (
	"net/http"

	"github.com/Dosada05/chess-escrow/handlers"
	appMiddleware "github.com/Dosada05/chess-escrow/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Token      *handlers.TokenHandler
	WebSocket  *handlers.WebSocketHandler
}

// New собирает маршрутизатор: публичные чтения, мутации под JWT,
// websocket-подписки и swagger.
func New(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Аутентификация
	r.Post("/auth/signup", h.Auth.SignUp)
	r.Post("/auth/login", h.Auth.SignIn)

	// Публичные чтения
	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/total", h.Tournament.GetTotal)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/full", h.Tournament.GetFull)
		r.Get("/{tournamentID}/groups", h.Tournament.GetGroups)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)
		r.Get("/{tournamentID}/winners", h.Tournament.GetWinners)
		r.Get("/{tournamentID}/players/{wallet}", h.Tournament.GetPlayer)

		// Мутации — только с JWT
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Authenticate(jwtSecret))

			r.Post("/", h.Tournament.Create)
			r.Post("/{tournamentID}/registration", h.Tournament.OpenRegistration)
			r.Post("/{tournamentID}/register", h.Tournament.Register)
			r.Post("/{tournamentID}/start", h.Tournament.CloseRegistrationAndStart)
			r.Post("/{tournamentID}/complete", h.Tournament.Complete)
			r.Post("/{tournamentID}/matches/result", h.Match.SubmitResult)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
		})
	})

	// Демо-леджер токена
	r.Route("/token", func(r chi.Router) {
		r.Get("/balance/{wallet}", h.Token.BalanceOf)
		r.Post("/mint", h.Token.Mint)
	})

	// Live-события турнира
	r.Get("/ws/tournaments/{tournamentID}", h.WebSocket.Subscribe)

	return r
}
