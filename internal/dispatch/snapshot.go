package dispatch

import (
	"context"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	dispatchv1 "classification-dispatcher/api/v1"
)

const DefaultSnapshotTimeout = 10 * time.Second

// Snapshotter lists the pods of every namespace in a single call.
type Snapshotter struct {
	log       *slog.Logger
	clientset kubernetes.Interface
	timeout   time.Duration
}

func NewSnapshotter(log *slog.Logger, cs kubernetes.Interface, timeout time.Duration) *Snapshotter {
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &Snapshotter{log: log, clientset: cs, timeout: timeout}
}

// Snapshot returns the projected pods in the order the API server listed
// them. It never returns a partial result.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]dispatchv1.PodInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secs := int64(s.timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	list, err := s.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		TimeoutSeconds: ptr.To(secs),
	})
	if err != nil {
		derr := newError(KindQueryFailed, err, "Kubernetes API Error listing pods: %s", orchestratorDetail(err))
		s.log.Error("unable to list pods", "error", derr.Detail)
		return nil, derr
	}

	pods := make([]dispatchv1.PodInfo, 0, len(list.Items))
	for i := range list.Items {
		pods = append(pods, projectPod(&list.Items[i]))
	}
	s.log.Debug("listed pods", "count", len(pods))
	return pods, nil
}

func projectPod(pod *corev1.Pod) dispatchv1.PodInfo {
	info := dispatchv1.PodInfo{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		IP:        pod.Status.PodIP,
		Node:      pod.Spec.NodeName,
		Phase:     projectPhase(pod.Status.Phase),
	}
	if info.IP == "" {
		info.IP = dispatchv1.IPUnassigned
	}
	if info.Node == "" {
		info.Node = dispatchv1.NodeUnscheduled
	}
	return info
}

func projectPhase(phase corev1.PodPhase) dispatchv1.PodPhase {
	switch phase {
	case corev1.PodPending:
		return dispatchv1.PodPhasePending
	case corev1.PodRunning:
		return dispatchv1.PodPhaseRunning
	case corev1.PodSucceeded:
		return dispatchv1.PodPhaseSucceeded
	case corev1.PodFailed:
		return dispatchv1.PodPhaseFailed
	}
	return dispatchv1.PodPhaseUnknown
}
