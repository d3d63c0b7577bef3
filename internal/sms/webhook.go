// Package sms is the SMS transport: an inbound webhook answering with
// TwiML and a Twilio-compatible outbound sender.
package sms

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// InboundHandler handles one inbound message and returns the reply.
type InboundHandler func(ctx context.Context, from, body string) string

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message *string  `xml:"Message,omitempty"`
}

// Server serves the webhook and the health route.
type Server struct {
	inbound InboundHandler
	health  Pinger
	log     zerolog.Logger
	router  *httprouter.Router
}

// NewServer wires the routes. health may be nil.
func NewServer(inbound InboundHandler, health Pinger, log zerolog.Logger) *Server {
	s := &Server{inbound: inbound, health: health, log: log, router: httprouter.New()}
	s.router.POST("/sms", s.logRequests(s.handleSMS))
	s.router.GET("/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("SMS webhook listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	from := r.PostForm.Get("From")
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	reply := s.inbound(r.Context(), from, r.PostForm.Get("Body"))

	resp := twimlResponse{}
	if reply != "" {
		resp.Message = &reply
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("Failed to write TwiML")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Health check failed")
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) logRequests(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		next(w, r, ps)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("Webhook request")
	}
}
