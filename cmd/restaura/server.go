package main

import (
	"net/http"

	"restaura/internal/app/listings"
	"restaura/internal/app/reviews"
	"restaura/internal/app/users"
	"restaura/internal/events"
	"restaura/internal/geocode"
	"restaura/internal/httpapi"
	"restaura/internal/logging"
	"restaura/internal/middleware"
	"restaura/internal/store"
	"restaura/internal/ws"
)

func newHTTPHandler(cfg Config, dataStore *store.Store, broker *events.Broker, hub *ws.Hub, logger *logging.Logger) http.Handler {
	geocoder := geocode.New(cfg.GeocoderBaseURL, cfg.GeocoderContact)

	userSvc := users.New(dataStore)
	reviewSvc := reviews.New(dataStore)
	listingSvc := listings.New(dataStore, geocoder, broker, logger.Zerolog())

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.New(userSvc, listingSvc, reviewSvc).Routes())
	mux.Handle("GET /ws", ws.Handler(hub))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	handler := middleware.CORS(cfg.AllowedOrigin)(mux)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)
	return handler
}
