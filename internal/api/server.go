package api

import (
	"encoding/json"
	"net/http"

	"hr-admin-api/internal/blob"
	"hr-admin-api/internal/config"
	"hr-admin-api/internal/database"
	"hr-admin-api/internal/mailer"
)

type Server struct {
	config *config.Config
	store  *database.Store
	blobs  *blob.Store
	mailer mailer.Mailer
}

func NewServer(cfg *config.Config, store *database.Store, blobs *blob.Store, mailer mailer.Mailer) *Server {
	return &Server{
		config: cfg,
		store:  store,
		blobs:  blobs,
		mailer: mailer,
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "Database unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
