// @title           HR Admin API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"hr-admin-api/internal/api"
	"hr-admin-api/internal/blob"
	"hr-admin-api/internal/config"
	"hr-admin-api/internal/database"
	"hr-admin-api/internal/mailer"
	"hr-admin-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "hr-admin-api/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to ping the database: %v", err)
	}
	log.Println("Connected to the database")

	store := database.NewStore(dbpool)
	blobs := blob.NewStore(dbpool)

	smtp, err := mailer.New(cfg.SMTP)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	server := api.NewServer(cfg, store, blobs, smtp)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", server.RegisterHandler)
		r.Post("/login", server.LoginHandler)
		r.Post("/forgot-password", server.ForgotPasswordHandler)
		r.Post("/reset-password", server.ResetPasswordHandler)
		r.With(server.RequireRoles()).Post("/change-password", server.ChangePasswordHandler)
	})

	r.Route("/api/users", func(r chi.Router) {
		admin := server.RequireRoles(models.RoleAdmin)

		r.Get("/role/{username}", server.GetUserRoleHandler)
		r.Get("/get-user/{username}", server.GetUserHandler)
		r.With(admin).Get("/get-all-user", server.GetAllUsersHandler)
		r.With(admin).Get("/get-user-details/{user_id}", server.GetUserDetailsHandler)
		r.With(admin).Post("/create-user", server.CreateUserHandler)
		r.With(admin).Put("/change-info", server.ChangeUserDetailsHandler)
		r.Post("/change-account", server.ChangeAccountHandler)
		r.Post("/upload-avatar", server.UploadAvatarHandler)
		r.Get("/avatar/{id}", server.GetAvatarHandler)
		r.With(admin).Delete("/delete-account", server.DeleteAccountHandler)
	})

	log.Println("Starting server on :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
