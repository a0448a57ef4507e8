package config

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/krateoplatformops/plumbing/env"
	crconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

const defaultSnapshotTimeout = 10 * time.Second

type Configuration struct {
	ListenAddress      string
	TemplatesDir       string
	FreeJobTemplate    string
	FreeNamespace      string
	PremiumJobTemplate string
	PremiumNamespace   string
	SnapshotTimeout    string
	Debug              string
}

func (r *Configuration) String() string {
	return fmt.Sprintf("LISTEN_ADDRESS: %s - TEMPLATES_DIR: %s - FREE: %s@%s - PREMIUM: %s@%s - SNAPSHOT_TIMEOUT: %s",
		r.ListenAddress, r.TemplatesDir,
		r.FreeJobTemplate, r.FreeNamespace,
		r.PremiumJobTemplate, r.PremiumNamespace,
		r.SnapshotTimeout)
}

// SnapshotTimeoutDuration parses SnapshotTimeout as whole seconds. Empty,
// malformed or non-positive values fall back to the default bound.
func (r *Configuration) SnapshotTimeoutDuration() (time.Duration, error) {
	if r.SnapshotTimeout == "" {
		return defaultSnapshotTimeout, nil
	}
	secs, err := strconv.Atoi(r.SnapshotTimeout)
	if err != nil {
		return defaultSnapshotTimeout, fmt.Errorf("unable to parse SNAPSHOT_TIMEOUT %q: %w", r.SnapshotTimeout, err)
	}
	if secs <= 0 {
		return defaultSnapshotTimeout, fmt.Errorf("SNAPSHOT_TIMEOUT must be positive, got %d", secs)
	}
	return time.Duration(secs) * time.Second, nil
}

func (r *Configuration) DebugEnabled() bool {
	b, err := strconv.ParseBool(r.Debug)
	return err == nil && b
}

func ParseConfig() Configuration {
	listenAddress := flag.String("listen-address",
		env.String("LISTEN_ADDRESS", ":5000"), "The address the dispatch server binds to.")
	templatesDir := flag.String("templates-dir",
		env.String("TEMPLATES_DIR", "."), "Directory job templates are resolved against")
	freeTemplate := flag.String("free-job-template",
		env.String("FREE_JOB_TEMPLATE", "free-job.yaml"), "Job template for the free tier")
	freeNamespace := flag.String("free-namespace",
		env.String("FREE_NAMESPACE", "free-service"), "Namespace free tier jobs are created in")
	premiumTemplate := flag.String("premium-job-template",
		env.String("PREMIUM_JOB_TEMPLATE", "premium-job.yaml"), "Job template for the premium tier")
	premiumNamespace := flag.String("premium-namespace",
		env.String("PREMIUM_NAMESPACE", "default"), "Namespace premium tier jobs are created in")
	snapshotTimeout := flag.String("snapshot-timeout",
		env.String("SNAPSHOT_TIMEOUT", "10"), "Pod listing timeout in seconds (default: 10)")
	debug := flag.String("debug",
		env.String("DEBUG", "false"), "Enable debug logging")

	crconfig.RegisterFlags(flag.CommandLine)

	flag.Parse()

	return Configuration{
		ListenAddress:      *listenAddress,
		TemplatesDir:       *templatesDir,
		FreeJobTemplate:    *freeTemplate,
		FreeNamespace:      *freeNamespace,
		PremiumJobTemplate: *premiumTemplate,
		PremiumNamespace:   *premiumNamespace,
		SnapshotTimeout:    *snapshotTimeout,
		Debug:              *debug,
	}
}
