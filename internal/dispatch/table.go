package dispatch

import (
	"fmt"

	dispatchv1 "classification-dispatcher/api/v1"
)

// Target is where a tier's jobs come from and where they run.
type Target struct {
	TemplateRef string
	Namespace   string
}

// Table maps every tier to its Target. It is read-only after construction.
type Table struct {
	targets map[dispatchv1.Tier]Target
}

func DefaultTargets() map[dispatchv1.Tier]Target {
	return map[dispatchv1.Tier]Target{
		dispatchv1.TierFree:    {TemplateRef: "free-job.yaml", Namespace: "free-service"},
		dispatchv1.TierPremium: {TemplateRef: "premium-job.yaml", Namespace: "default"},
	}
}

// NewTable checks that targets covers every tier exactly once and that no two
// tiers share a (template, namespace) pair.
func NewTable(targets map[dispatchv1.Tier]Target) (*Table, error) {
	seen := make(map[Target]dispatchv1.Tier, len(targets))
	out := make(map[dispatchv1.Tier]Target, len(targets))
	for tier, target := range targets {
		if !tier.Valid() {
			return nil, fmt.Errorf("unknown tier %d in dispatch table", int(tier))
		}
		if target.TemplateRef == "" || target.Namespace == "" {
			return nil, fmt.Errorf("tier %s: template and namespace are required", tier)
		}
		if other, ok := seen[target]; ok {
			return nil, fmt.Errorf("tiers %s and %s share template %q in namespace %q", other, tier, target.TemplateRef, target.Namespace)
		}
		seen[target] = tier
		out[tier] = target
	}
	for _, tier := range dispatchv1.Tiers() {
		if _, ok := out[tier]; !ok {
			return nil, fmt.Errorf("tier %s has no dispatch target", tier)
		}
	}
	return &Table{targets: out}, nil
}

// Resolve returns the Target for tier. Callers only pass enumerated tiers.
func (t *Table) Resolve(tier dispatchv1.Tier) Target {
	return t.targets[tier]
}
