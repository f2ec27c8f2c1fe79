package main

import (
	"net/http"

	"github.com/galvezuma/BrachyUMA21/pkg/handler"
)

func NewRouter(dbctx *handler.DBContext) *http.ServeMux {
	mux := http.NewServeMux()

	// Error route
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	// Main routes
	mux.HandleFunc("GET /", dbctx.MainPage)
	mux.HandleFunc("GET /cluster/{cluster_id}", dbctx.ClusterPage)

	// API routes
	mux.HandleFunc("GET /api/v1/health", handler.HealthCheck)
	mux.HandleFunc("GET /api/v1/clusters", dbctx.ClusterListAPI)

	// Get sequences
	mux.HandleFunc("GET /sequence/by-cluster", dbctx.GetSequenceByClusterIDHandler)

	return mux
}
