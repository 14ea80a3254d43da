package clinical

import "strings"

// EventKind classifies a timeline entry for its icon.
type EventKind int

const (
	KindEvent EventKind = iota
	KindProcedure
	KindDiagnosis
)

// Icon returns the glyph shown next to the entry.
func (k EventKind) Icon() string {
	switch k {
	case KindProcedure:
		return "✚"
	case KindDiagnosis:
		return "◆"
	default:
		return "●"
	}
}

// Classify picks the kind from the event text.
func Classify(event string) EventKind {
	lower := strings.ToLower(event)
	switch {
	case strings.Contains(lower, "surgery"), strings.Contains(lower, "graft"):
		return KindProcedure
	case strings.Contains(lower, "diagnosed"):
		return KindDiagnosis
	default:
		return KindEvent
	}
}

// RiskLevel is the backend's coarse risk classification.
type RiskLevel string

const (
	RiskHigh     RiskLevel = "High"
	RiskModerate RiskLevel = "Moderate"
	RiskLow      RiskLevel = "Low"
	RiskUnknown  RiskLevel = "Unknown"
)

// ParseRisk normalizes a riskScore value; anything unrecognized is Unknown.
func ParseRisk(score string) RiskLevel {
	switch RiskLevel(strings.TrimSpace(score)) {
	case RiskHigh:
		return RiskHigh
	case RiskModerate:
		return RiskModerate
	case RiskLow:
		return RiskLow
	default:
		return RiskUnknown
	}
}

// Severity maps a risk level to the status style used for its chip.
func (r RiskLevel) Severity() string {
	switch r {
	case RiskHigh:
		return "error"
	case RiskModerate:
		return "warning"
	case RiskLow:
		return "success"
	default:
		return "default"
	}
}

// CarePlan item types accepted by POST /api/patient/{id}/careplan.
const (
	ItemPrescription = "prescription"
	ItemTest         = "test"
)

// ValidItemType reports whether t is a care-plan item type the backend accepts.
func ValidItemType(t string) bool {
	return t == ItemPrescription || t == ItemTest
}
