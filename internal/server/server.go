package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"sigs.k8s.io/controller-runtime/pkg/healthz"

	dispatchv1 "classification-dispatcher/api/v1"
	"classification-dispatcher/internal/dispatch"
	"classification-dispatcher/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

type JobDispatcher interface {
	Dispatch(ctx context.Context, tier dispatchv1.Tier) (string, error)
}

type PodSnapshotter interface {
	Snapshot(ctx context.Context) ([]dispatchv1.PodInfo, error)
}

type Options struct {
	Dispatcher  JobDispatcher
	Snapshotter PodSnapshotter
	Metrics     *metrics.Metrics
	ReadyChecks map[string]healthz.Checker
}

type Server struct {
	log *slog.Logger

	dispatcher  JobDispatcher
	snapshotter PodSnapshotter
	metrics     *metrics.Metrics
	readyChecks map[string]healthz.Checker
}

func New(log *slog.Logger, opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		log:         log,
		dispatcher:  opts.Dispatcher,
		snapshotter: opts.Snapshotter,
		metrics:     m,
		readyChecks: opts.ReadyChecks,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestLogging)

	r.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	for _, tier := range dispatchv1.Tiers() {
		r.Handle("/img-classification/"+tier.String(), s.handleSubmit(tier)).Methods(http.MethodPost)
	}

	r.PathPrefix("/healthz").Handler(http.StripPrefix("/healthz", &healthz.Handler{
		Checks: map[string]healthz.Checker{"ping": healthz.Ping},
	}))
	r.PathPrefix("/readyz").Handler(http.StripPrefix("/readyz", &healthz.Handler{
		Checks: s.readyChecks,
	}))
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dispatch server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down dispatch server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context(), s.log)
	log.Info("received request for cluster snapshot")

	pods, err := s.snapshotter.Snapshot(r.Context())
	if err != nil {
		s.metrics.ObserveSnapshot(metrics.OutcomeFailed)
		msg := "An internal server error occurred"
		if dispatch.KindOf(err) == dispatch.KindQueryFailed {
			msg = "Failed to list pods"
		}
		writeJSON(w, http.StatusInternalServerError, dispatchv1.ErrorResponse{
			Error:   msg,
			Details: dispatch.Detail(err),
		})
		return
	}

	s.metrics.ObserveSnapshot(metrics.OutcomeOK)
	log.Info(fmt.Sprintf("found %d pods across all namespaces", len(pods)))
	writeJSON(w, http.StatusOK, dispatchv1.ConfigResponse{Pods: pods})
}

func (s *Server) handleSubmit(tier dispatchv1.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := loggerFrom(r.Context(), s.log).With("tier", tier.String())
		log.Info("received job submission")

		// Submission is not bounded by the client connection: once the
		// create call is issued it runs to completion.
		name, err := s.dispatcher.Dispatch(context.WithoutCancel(r.Context()), tier)
		if err != nil {
			kind := dispatch.KindOf(err)
			s.metrics.ObserveSubmission(tier.String(), metrics.OutcomeRejected, kind.String())
			log.Warn("job submission failed", "kind", kind.String())
			writeJSON(w, http.StatusInternalServerError, dispatchv1.ErrorResponse{
				Error:   fmt.Sprintf("Failed to create %s tier job.", tier),
				Details: dispatch.Detail(err),
			})
			return
		}

		s.metrics.ObserveSubmission(tier.String(), metrics.OutcomeAccepted, "none")
		writeJSON(w, http.StatusOK, dispatchv1.SubmissionResponse{
			Message: fmt.Sprintf("%s tier job creation request accepted.", tier.Title()),
			JobName: name,
		})
	}
}
