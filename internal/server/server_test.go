package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"sigs.k8s.io/controller-runtime/pkg/healthz"

	dispatchv1 "classification-dispatcher/api/v1"
	"classification-dispatcher/internal/dispatch"
	"classification-dispatcher/internal/helpers/template"
)

const jobTemplate = `apiVersion: batch/v1
kind: Job
metadata:
  generateName: %s-classification-
spec:
  backoffLimit: 0
  template:
    spec:
      restartPolicy: Never
      containers:
      - name: classify
        image: evaluator:latest
`

var generatedName = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

type fixture struct {
	clientset *fake.Clientset
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cs := fake.NewClientset()
	var seq atomic.Int64
	cs.PrependReactor("create", "jobs", func(action k8stesting.Action) (bool, runtime.Object, error) {
		obj := action.(k8stesting.CreateAction).GetObject().(metav1.Object)
		if obj.GetName() == "" {
			obj.SetName(fmt.Sprintf("%s%05d", obj.GetGenerateName(), seq.Add(1)))
		}
		return false, nil, nil
	})

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/free-job.yaml", []byte(fmt.Sprintf(jobTemplate, "free")), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/premium-job.yaml", []byte(fmt.Sprintf(jobTemplate, "premium")), 0o644))

	log := slog.New(slog.DiscardHandler)
	table, err := dispatch.NewTable(dispatch.DefaultTargets())
	require.NoError(t, err)

	srv := New(log, Options{
		Dispatcher:  dispatch.NewDispatcher(table, dispatch.NewSubmitter(log, cs, template.NewStore(fs, "/app"))),
		Snapshotter: dispatch.NewSnapshotter(log, cs, 0),
	})
	return &fixture{clientset: cs, handler: srv.Handler()}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSubmitFree(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/img-classification/free")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	body := decode[dispatchv1.SubmissionResponse](t, rec)
	assert.Equal(t, "Free tier job creation request accepted.", body.Message)
	assert.Regexp(t, generatedName, body.JobName)
	assert.NotEqual(t, "free-job.yaml", body.JobName)

	job, err := f.clientset.BatchV1().Jobs("free-service").Get(context.Background(), body.JobName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "free-classification-", job.GenerateName)
}

func TestSubmitPremiumQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	quota := `exceeded quota: premium-quota, requested: requests.cpu=2, used: requests.cpu=8, limited: requests.cpu=8`
	f.clientset.PrependReactor("create", "jobs", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Group: "batch", Resource: "jobs"}, "", errors.New(quota))
	})

	rec := f.do(http.MethodPost, "/img-classification/premium")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[dispatchv1.ErrorResponse](t, rec)
	assert.Equal(t, "Failed to create premium tier job.", body.Error)
	assert.Contains(t, body.Details, quota)
}

func TestSubmitMissingTemplate(t *testing.T) {
	f := newFixture(t)
	fs := afero.NewMemMapFs()
	log := slog.New(slog.DiscardHandler)
	table, err := dispatch.NewTable(dispatch.DefaultTargets())
	require.NoError(t, err)
	h := New(log, Options{
		Dispatcher: dispatch.NewDispatcher(table, dispatch.NewSubmitter(log, f.clientset, template.NewStore(fs, "/app"))),
	}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/img-classification/free", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[dispatchv1.ErrorResponse](t, rec)
	assert.Equal(t, "Failed to create free tier job.", body.Error)
	assert.Contains(t, body.Details, "/app/free-job.yaml")
}

func TestConfigEmpty(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pods": []}`, rec.Body.String())
}

func TestConfigPods(t *testing.T) {
	f := newFixture(t)
	_, err := f.clientset.CoreV1().Pods("free-service").Create(context.Background(), &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "free-classification-00001-x7k2p", Namespace: "free-service"},
		Spec:       corev1.PodSpec{NodeName: "ip-192-168-12-4"},
		Status:     corev1.PodStatus{PodIP: "192.168.14.2", Phase: corev1.PodRunning},
	}, metav1.CreateOptions{})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pods": [{
		"name": "free-classification-00001-x7k2p",
		"ip": "192.168.14.2",
		"namespace": "free-service",
		"node": "ip-192-168-12-4",
		"status": "Running"
	}]}`, rec.Body.String())
}

func TestConfigTimeout(t *testing.T) {
	f := newFixture(t)
	f.clientset.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewTimeoutError("the server was unable to return a response in the time allotted", 10)
	})

	rec := f.do(http.MethodGet, "/config")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[dispatchv1.ErrorResponse](t, rec)
	assert.Equal(t, "Failed to list pods", body.Error)
	assert.Contains(t, body.Details, "unable to return a response")
}

func TestRouting(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/img-classification/gold").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/img-classification/free").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodPost, "/config").Code)
	assert.Empty(t, f.clientset.Actions())
}

func TestRequestIDPropagation(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz").Code)

	f.do(http.MethodPost, "/img-classification/free")
	rec := f.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `classification_dispatcher_job_submissions_total{kind="none",outcome="accepted",tier="free"} 1`)
}

func TestReadyzFailing(t *testing.T) {
	h := New(slog.New(slog.DiscardHandler), Options{
		ReadyChecks: map[string]healthz.Checker{
			"apiserver": func(_ *http.Request) error { return errors.New("unreachable") },
		},
	}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
