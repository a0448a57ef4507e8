package dispatch

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"classification-dispatcher/internal/helpers/template"
)

const testJobTemplate = `apiVersion: batch/v1
kind: Job
metadata:
  generateName: classification-
  namespace: somewhere-else
spec:
  template:
    spec:
      restartPolicy: Never
      containers:
      - name: classify
        image: evaluator:latest
`

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newFakeClientset returns a clientset that fills in metadata.name from
// metadata.generateName the way the API server does.
func newFakeClientset(objects ...runtime.Object) *fake.Clientset {
	cs := fake.NewClientset(objects...)
	var seq atomic.Int64
	cs.PrependReactor("create", "jobs", func(action k8stesting.Action) (bool, runtime.Object, error) {
		obj, ok := action.(k8stesting.CreateAction).GetObject().(metav1.Object)
		if ok && obj.GetName() == "" && obj.GetGenerateName() != "" {
			obj.SetName(fmt.Sprintf("%s%05d", obj.GetGenerateName(), seq.Add(1)))
		}
		return false, nil, nil
	})
	return cs
}

func newTemplateStore(t *testing.T, files map[string]string) *template.Store {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/srv/templates/"+name, []byte(content), 0o644))
	}
	return template.NewStore(fs, "/srv/templates")
}
