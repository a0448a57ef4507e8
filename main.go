package main

import (
	"log/slog"
	"os"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// so that ambient kubeconfig credentials of any provider resolve.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/go-logr/logr"
	prettylog "github.com/krateoplatformops/plumbing/slogs/pretty"
	"github.com/spf13/afero"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"

	dispatchv1 "classification-dispatcher/api/v1"
	"classification-dispatcher/internal/dispatch"
	"classification-dispatcher/internal/helpers/config"
	"classification-dispatcher/internal/helpers/kube/client"
	"classification-dispatcher/internal/helpers/template"
	"classification-dispatcher/internal/metrics"
	"classification-dispatcher/internal/server"
)

func newLogHandler(level slog.Level) slog.Handler {
	return prettylog.New(&slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	},
		prettylog.WithDestinationWriter(os.Stderr),
		prettylog.WithColor(),
		prettylog.WithOutputEmptyAttrs(),
	)
}

func main() {
	configuration := config.ParseConfig()

	level := slog.LevelInfo
	if configuration.DebugEnabled() {
		level = slog.LevelDebug
	}
	log := slog.New(newLogHandler(level))

	// controller-runtime only needs INFO, our own logger carries debug output.
	ctrl.SetLogger(logr.FromSlogHandler(newLogHandler(slog.LevelInfo)))

	log.Info("starting dispatch server", "config", configuration.String())

	snapshotTimeout, err := configuration.SnapshotTimeoutDuration()
	if err != nil {
		log.Warn("unable to parse SNAPSHOT_TIMEOUT, using default value", "error", err, "default", snapshotTimeout.String())
	}

	table, err := dispatch.NewTable(map[dispatchv1.Tier]dispatch.Target{
		dispatchv1.TierFree:    {TemplateRef: configuration.FreeJobTemplate, Namespace: configuration.FreeNamespace},
		dispatchv1.TierPremium: {TemplateRef: configuration.PremiumJobTemplate, Namespace: configuration.PremiumNamespace},
	})
	if err != nil {
		log.Error("invalid dispatch table", "error", err)
		os.Exit(1)
	}

	rc, err := ctrl.GetConfig()
	if err != nil {
		log.Error("failed to load Kubernetes configuration, ensure a kubeconfig is present or run inside a cluster", "error", err)
		os.Exit(1)
	}

	clientset, err := client.New(rc)
	if err != nil {
		log.Error("unable to create Kubernetes clientset", "error", err)
		os.Exit(1)
	}
	log.Info("Kubernetes configuration loaded", "host", rc.Host)

	store := template.NewStore(afero.NewOsFs(), configuration.TemplatesDir)

	srv := server.New(log, server.Options{
		Dispatcher:  dispatch.NewDispatcher(table, dispatch.NewSubmitter(log, clientset, store)),
		Snapshotter: dispatch.NewSnapshotter(log, clientset, snapshotTimeout),
		Metrics:     metrics.New(),
		ReadyChecks: map[string]healthz.Checker{
			"apiserver": client.ReadyCheck(clientset),
		},
	})

	if err := srv.Run(ctrl.SetupSignalHandler(), configuration.ListenAddress); err != nil {
		log.Error("problem running dispatch server", "error", err)
		os.Exit(1)
	}
}
