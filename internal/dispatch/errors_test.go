package dispatch

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var jobsResource = schema.GroupResource{Group: "batch", Resource: "jobs"}

func TestKindOf(t *testing.T) {
	err := newError(KindTemplateParse, nil, "bad yaml")
	assert.Equal(t, KindTemplateParse, KindOf(err))
	assert.Equal(t, KindTemplateParse, KindOf(errors.Wrap(err, "wrapped")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "bad yaml", Detail(newError(KindTemplateParse, nil, "bad yaml")))
	assert.Equal(t, "plain", Detail(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "TemplateNotFound", KindTemplateNotFound.String())
	assert.Equal(t, "TemplateParseError", KindTemplateParse.String())
	assert.Equal(t, "OrchestratorRejected", KindOrchestratorRejected.String())
	assert.Equal(t, "QueryFailed", KindQueryFailed.String())
	assert.Equal(t, "InternalError", KindInternal.String())
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"query failed", newError(KindQueryFailed, nil, "timeout"), true},
		{"not found", newError(KindTemplateNotFound, nil, "x"), false},
		{"parse", newError(KindTemplateParse, nil, "x"), false},
		{"internal", newError(KindInternal, nil, "x"), false},
		{"quota", newError(KindOrchestratorRejected,
			apierrors.NewForbidden(jobsResource, "j", errors.New("exceeded quota")), "x"), false},
		{"throttled", newError(KindOrchestratorRejected,
			apierrors.NewTooManyRequests("slow down", 1), "x"), true},
		{"unavailable", newError(KindOrchestratorRejected,
			apierrors.NewServiceUnavailable("later"), "x"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}

func TestOrchestratorDetail(t *testing.T) {
	err := apierrors.NewForbidden(jobsResource, "j", errors.New("exceeded quota: compute"))
	assert.Contains(t, orchestratorDetail(err), "exceeded quota: compute")
	assert.Equal(t, "boom", orchestratorDetail(errors.New("boom")))
}
