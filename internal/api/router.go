package api

import (
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/user/webconsole/internal/session"
)

// Broker is the session state the gateway reads and feeds answers into.
type Broker interface {
	ID() string
	Snapshot() session.Snapshot
	Submit(id, value string) bool
	Tag(id string) (session.TypeTag, bool)
	TouchActivity()
}

type Options struct {
	Broker Broker
	// Assets holds index.html, style.css and script.js at its root.
	Assets fs.FS
	// WebSocket serves GET /ws. Optional.
	WebSocket http.HandlerFunc
	Logger    *slog.Logger
	// ServiceName names the otelhttp spans.
	ServiceName string
}

type handler struct {
	broker Broker
	assets fs.FS
	logger *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	h := &handler{
		broker: opts.Broker,
		assets: opts.Assets,
		logger: opts.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	service := opts.ServiceName
	if service == "" {
		service = "webconsole"
	}

	r := chi.NewRouter()
	r.Use(touchActivity(h.broker))
	r.Use(requestID)
	r.Use(chimw.Recoverer)
	r.Use(sessionHeader(h.broker.ID()))
	r.Use(tracing(service))
	r.Use(requestLogger(h.logger))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", h.serveAsset("index.html", "text/html; charset=utf-8"))
	r.Get("/style.css", h.serveAsset("style.css", "text/css; charset=utf-8"))
	r.Get("/script.js", h.serveAsset("script.js", "application/javascript; charset=utf-8"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Post("/input", h.postInput)
		r.Post("/validate", h.postValidate)
	})

	if opts.WebSocket != nil {
		r.Get("/ws", opts.WebSocket)
	}
	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "404 Not Found")
}

// decodeJSON reads a single JSON value of at most 1 MiB. Unknown fields are
// ignored; trailing data is an error.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
