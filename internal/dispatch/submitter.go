package dispatch

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"classification-dispatcher/internal/helpers"
	"classification-dispatcher/internal/helpers/template"
)

const generateNamePrefix = "img-classification"

// TemplateLoader resolves a template reference into a Job manifest.
type TemplateLoader interface {
	Load(ref string) (*batchv1.Job, error)
}

// Submitter turns a Target into exactly one Job creation call.
type Submitter struct {
	log       *slog.Logger
	clientset kubernetes.Interface
	templates TemplateLoader
}

func NewSubmitter(log *slog.Logger, cs kubernetes.Interface, templates TemplateLoader) *Submitter {
	return &Submitter{log: log, clientset: cs, templates: templates}
}

// Submit creates the job described by target.TemplateRef in target.Namespace
// and returns the name the orchestrator assigned to it. Every failure is a
// *Error. There is no retry and no idempotency: each call creates a new Job.
func (s *Submitter) Submit(ctx context.Context, target Target) (string, error) {
	log := s.log.With("template", target.TemplateRef, "namespace", target.Namespace)

	job, err := s.templates.Load(target.TemplateRef)
	if err != nil {
		derr := classifyTemplateError(err)
		log.Error("unable to load job template", "kind", derr.Kind.String(), "error", derr.Detail)
		return "", derr
	}

	job.Namespace = target.Namespace
	job.ResourceVersion = ""
	if job.Name == "" && job.GenerateName == "" {
		job.GenerateName = helpers.ComputeGenerateName(generateNamePrefix, target.Namespace)
	}

	log.Info("creating job")
	created, err := s.clientset.BatchV1().Jobs(target.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		var derr *Error
		var status apierrors.APIStatus
		if errors.As(err, &status) {
			derr = newError(KindOrchestratorRejected, err, "Kubernetes API Error: %s", orchestratorDetail(err))
		} else {
			derr = newError(KindInternal, err, "An unexpected error occurred: %v", err)
		}
		log.Error("unable to create job", "kind", derr.Kind.String(), "error", derr.Detail)
		return "", derr
	}

	if created == nil || created.Name == "" {
		derr := newError(KindInternal, nil, "orchestrator accepted the job without assigning a name")
		log.Error("unable to create job", "kind", derr.Kind.String(), "error", derr.Detail)
		return "", derr
	}

	log.Info("job created", "job", created.Name)
	return created.Name, nil
}

func classifyTemplateError(err error) *Error {
	switch {
	case errors.Is(err, template.ErrNotFound):
		return newError(KindTemplateNotFound, err, "%s", trimSentinel(err, template.ErrNotFound))
	case errors.Is(err, template.ErrInvalid):
		return newError(KindTemplateParse, err, "%s", trimSentinel(err, template.ErrInvalid))
	}
	return newError(KindInternal, err, "An unexpected error occurred: %v", err)
}

// trimSentinel drops the trailing ": <sentinel>" pkg/errors appends when
// wrapping, leaving the human readable message.
func trimSentinel(err, sentinel error) string {
	msg := err.Error()
	suffix := ": " + sentinel.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return msg
}
