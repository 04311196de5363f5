package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridgedb/ridgedb/pkg/log"
)

// Server is the side HTTP listener carrying /metrics and /healthz,
// built with the same mux.NewRouter + gorilla/handlers middleware
// stack the teacher's cmd/cc-backend/server.go uses for its own HTTP
// server, scaled down to the two routes this instance needs.
type Server struct {
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer wires a Collector reading src into its own prometheus
// registry (not the global DefaultRegisterer, so library imports that
// register into the default one don't leak unrelated metrics onto this
// endpoint) and returns a Server ready to ListenAndServe.
func NewServer(addr string, src Source) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src))

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Use(handlers.CompressHandler)

	logged := handlers.CustomLoggingHandler(log.InfoWriter, r, func(w io.Writer, params handlers.LogFormatterParams) {
		log.Finfof(w, "%s %s (Response: %d, Size: %d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
	})

	return &Server{
		httpSrv: &http.Server{
			Addr:         addr,
			Handler:      logged,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe binds addr and serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	log.Infof("metrics: listening on %s", ln.Addr().String())
	err = s.httpSrv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Addr returns the listener's bound address, or "" before
// ListenAndServe has started listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the HTTP server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
