package client

import (
	"fmt"
	"net/http"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

const userAgent = "classification-dispatcher"

func New(rc *rest.Config) (kubernetes.Interface, error) {
	config := *rc
	config.UserAgent = userAgent + " " + rest.DefaultKubernetesUserAgent()
	//config.QPS = 1000
	//config.Burst = 3000

	return kubernetes.NewForConfig(&config)
}

// FromUnstructured decodes a generic document (as produced by YAML/JSON
// unmarshalling) into a typed API object.
func FromUnstructured(obj map[string]any, into runtime.Object) error {
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj, into); err != nil {
		return fmt.Errorf("failed to convert from unstructured: %w", err)
	}
	return nil
}

// ReadyCheck reports whether the API server answers discovery requests.
func ReadyCheck(cs kubernetes.Interface) healthz.Checker {
	return func(_ *http.Request) error {
		if _, err := cs.Discovery().ServerVersion(); err != nil {
			return fmt.Errorf("api server unreachable: %w", err)
		}
		return nil
	}
}
