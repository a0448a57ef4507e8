package v1

import "strings"

// Tier selects the job template and namespace a classification request runs in.
type Tier int

const (
	TierFree Tier = iota
	TierPremium
)

// Tiers returns every tier the service accepts, in routing order.
func Tiers() []Tier {
	return []Tier{TierFree, TierPremium}
}

func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPremium:
		return "premium"
	}
	return "unknown"
}

// Title is the capitalised tier name used in response messages.
func (t Tier) Title() string {
	s := t.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether t is one of the enumerated tiers.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}
