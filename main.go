package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"outfit-studio-server/modules/artifact"
	"outfit-studio-server/modules/common/config"
	"outfit-studio-server/modules/events"
	"outfit-studio-server/modules/gencache"
	"outfit-studio-server/modules/generate"
	"outfit-studio-server/modules/recommend"
	"outfit-studio-server/modules/wardrobe"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetConfig()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "outfit-studio",
		"model":   cfg.GeminiModel,
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	store, err := wardrobe.NewStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open wardrobe store: %v", err)
	}

	artifacts, err := artifact.NewStore(cfg.StorageDir, cfg.ArtifactFormat)
	if err != nil {
		log.Fatalf("❌ Failed to open artifact store: %v", err)
	}

	index, err := gencache.NewIndex(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open cache index: %v", err)
	}

	hub := events.NewHub()
	provider := generate.NewGeminiProvider(cfg)
	generateService := generate.NewService(store, artifacts, index, provider, hub, cfg.ProviderTimeout)

	wardrobeHandler := wardrobe.NewHandler(store)
	generateHandler := generate.NewHandler(generateService)
	recommendHandler := recommend.NewHandler(recommend.NewService(store))

	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	// Wardrobe & references
	r.HandleFunc("/upload/clothing", wardrobeHandler.HandleUploadClothing).Methods("POST")
	r.HandleFunc("/upload/reference", wardrobeHandler.HandleUploadReference).Methods("POST")
	r.HandleFunc("/wardrobe/tops", wardrobeHandler.HandleListTops).Methods("GET")
	r.HandleFunc("/wardrobe/bottoms", wardrobeHandler.HandleListBottoms).Methods("GET")
	r.HandleFunc("/wardrobe/items", wardrobeHandler.HandleListItems).Methods("GET")
	r.HandleFunc("/wardrobe/items/{id}", wardrobeHandler.HandleDeleteItem).Methods("DELETE")
	r.HandleFunc("/user/refs", wardrobeHandler.HandleListReferences).Methods("GET")
	r.HandleFunc("/user/refs/{id}", wardrobeHandler.HandleDeleteReference).Methods("DELETE")

	// Generation
	r.HandleFunc("/generate", generateHandler.HandleGenerate).Methods("POST")
	r.HandleFunc("/autopick", recommendHandler.HandleAutoPick).Methods("POST")
	r.HandleFunc("/admin/cache/invalidate", generateHandler.HandleInvalidate).Methods("POST")

	// Generation event feed
	r.HandleFunc("/ws/events", hub.HandleWS)

	// Uploaded files and generated outputs
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StorageDir))))

	log.Printf("🚀 Outfit Studio Server starting on port %s", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📡 Event feed: ws://localhost:%s/ws/events", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
