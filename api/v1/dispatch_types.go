package v1

const (
	// NodeUnscheduled is reported for pods that have not been bound to a node yet.
	NodeUnscheduled = "Pending/Unscheduled"
	// IPUnassigned is reported for pods without a pod IP.
	IPUnassigned = "N/A"
)

type PodPhase string

const (
	PodPhasePending   PodPhase = "Pending"
	PodPhaseRunning   PodPhase = "Running"
	PodPhaseSucceeded PodPhase = "Succeeded"
	PodPhaseFailed    PodPhase = "Failed"
	PodPhaseUnknown   PodPhase = "Unknown"
)

// PodInfo is the normalized projection of a single pod in a cluster snapshot.
type PodInfo struct {
	Name      string   `json:"name"`
	IP        string   `json:"ip"`
	Namespace string   `json:"namespace"`
	Node      string   `json:"node"`
	Phase     PodPhase `json:"status"`
}

type ConfigResponse struct {
	Pods []PodInfo `json:"pods"`
}

type SubmissionResponse struct {
	Message string `json:"message"`
	JobName string `json:"job_name"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}
