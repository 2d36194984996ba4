package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/tracker"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control server that starts and stops reconciliation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initTracker(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ctl := newRunController(ctx, env.Tracker)
		ctl.onDone = func(report *tracker.RunReport) { env.notify(ctx, report) }
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctl, env.Breakers, env.Registry),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			ctl.Stop()
			ctl.Wait()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// runner is the part of the tracker the control server drives.
type runner interface {
	Run(ctx context.Context) (*tracker.RunReport, error)
}

// runController allows at most one run at a time and cancels it on request.
type runController struct {
	base   context.Context
	runner runner
	onDone func(*tracker.RunReport)

	mu        sync.Mutex
	cancel    context.CancelFunc
	startedAt time.Time
	last      *tracker.RunReport
	wg        sync.WaitGroup
}

// runStatus is the body of GET /runs/current.
type runStatus struct {
	Running   bool               `json:"running"`
	StartedAt *time.Time         `json:"started_at,omitempty"`
	Last      *tracker.RunReport `json:"last,omitempty"`
}

func newRunController(base context.Context, r runner) *runController {
	return &runController{base: base, runner: r}
}

// Start launches a run in the background. It returns false when one is
// already active.
func (c *runController) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	c.startedAt = time.Now().UTC()
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer cancel()
		report, err := c.runner.Run(ctx)
		if err != nil {
			zap.L().Warn("background run ended with error", zap.Error(err))
		}
		if c.onDone != nil {
			c.onDone(report)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.last = report
		c.cancel = nil
	}()
	return true
}

// Stop requests cancellation of the active run. The run finishes its
// current item first. It returns false when nothing is running.
func (c *runController) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Wait blocks until the active run, if any, has returned.
func (c *runController) Wait() {
	c.wg.Wait()
}

// Status reports the active run and the last finished one.
func (c *runController) Status() runStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := runStatus{Running: c.cancel != nil, Last: c.last}
	if st.Running {
		started := c.startedAt
		st.StartedAt = &started
	}
	return st
}

// buildRouter wires the control endpoints. breakers and metrics may be nil.
func buildRouter(ctl *runController, breakers *resilience.ServiceBreakers, metrics prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if breakers != nil {
			body["breakers"] = breakers.States()
		}
		writeJSON(w, http.StatusOK, body)
	})

	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
			if !ctl.Start() {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "run already in progress"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		})
		r.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
			if !ctl.Stop() {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "no run in progress"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
		})
		r.Get("/current", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, ctl.Status())
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
