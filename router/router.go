package router

import (
	"net/http"

	"github.com/ulule/limiter/v3"

	transcriptionHandler "transcriptionapi/internal/transcription"
	"transcriptionapi/internal/transcription/service"
	"transcriptionapi/middleware"
	"transcriptionapi/pkg/identity"
	"transcriptionapi/pkg/metrics"
	"transcriptionapi/socket"
)

// Deps are the collaborators the router wires together. Hub, Metrics and
// Limiter are optional.
type Deps struct {
	Service        *service.TranscriptionService
	Verifier       identity.Verifier
	Hub            *socket.Hub
	Metrics        *metrics.Metrics
	Limiter        *limiter.Limiter
	AllowedOrigins []string
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()

	h := transcriptionHandler.NewTranscriptionHandler(d.Service)
	auth := middleware.Authenticate(d.Verifier)

	mux.HandleFunc("GET /{$}", h.Root)

	mux.Handle("POST /transcriptions", auth(http.HandlerFunc(h.CreateTranscription)))
	mux.Handle("GET /transcriptions", auth(http.HandlerFunc(h.ListTranscriptions)))
	mux.Handle("GET /transcriptions/{id}", auth(http.HandlerFunc(h.GetTranscription)))
	mux.Handle("PUT /transcriptions/{id}", auth(http.HandlerFunc(h.UpdateTranscription)))
	mux.Handle("DELETE /transcriptions/{id}", auth(http.HandlerFunc(h.DeleteTranscription)))
	mux.Handle("/transcriptions", h.MethodNotAllowed(http.MethodGet, http.MethodHead, http.MethodPost))
	mux.Handle("/transcriptions/{id}", h.MethodNotAllowed(http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete))

	// WebSocket change feed
	if d.Hub != nil {
		hub := d.Hub
		wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.UserID(r.Context())
			socket.ServeWs(hub, w, r, userID)
		})
		mux.Handle("GET /ws", middleware.AuthenticateSocket(d.Verifier)(wsHandler))
	}

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	mux.HandleFunc("/", h.NotFound)

	var handler http.Handler = mux
	if d.Metrics != nil {
		handler = d.Metrics.Middleware(handler)
	}
	if d.Limiter != nil {
		handler = middleware.RateLimit(d.Limiter)(handler)
	}
	handler = middleware.CORSMiddleware(d.AllowedOrigins)(handler)
	return middleware.RequestLogger(handler)
}
