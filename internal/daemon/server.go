// Package daemon runs the solvehelperd HTTP API and its hint worker.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/api"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/queue"
)

// Server is the API daemon
type Server struct {
	cfg    *config.Config
	res    *Resources
	app    *api.App
	server *http.Server
	conn   *queue.Connection
	worker *queue.Consumer
}

// NewServer connects the infrastructure and wires the HTTP API. When
// RabbitMQ is configured the server also consumes hint jobs.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	res, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, res: res}

	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		s.conn = conn
		res.Checks["rabbitmq"] = func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}

	s.app = api.NewApp(res.Infra)
	if s.conn != nil {
		s.worker = queue.NewConsumer(s.conn, HintJobHandler(s.app.Hints), queue.ConsumerConfig{
			Workers:   cfg.Workers,
			Retryable: Retryable,
		})
	}

	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(s.app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// App returns the wired services.
func (s *Server) App() *api.App {
	return s.app
}

// Start starts the hint worker, then serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.worker != nil {
		if err := s.worker.Start(ctx); err != nil {
			return fmt.Errorf("start hint worker: %w", err)
		}
	}
	slog.Info("starting server", "addr", s.server.Addr, "debug", s.cfg.Debug, "worker", s.worker != nil)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, drains the worker and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil {
			slog.Warn("close rabbitmq", "error", cerr)
		}
	}
	s.res.Close()
	return err
}
