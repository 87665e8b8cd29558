package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/server"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	app, err := server.Bootstrap(cfg)
	if err != nil {
		log.Fatalf("could not start: %v", err)
	}
	r = app.Router
}

// Handler is the entry point for the Vercel Go runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
