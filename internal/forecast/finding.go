package forecast

import (
	"fmt"
	"sort"
)

// Severity ranks findings. Higher values are more severe.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Label is the user-facing name of the severity.
func (s Severity) Label() string {
	switch s {
	case SeverityHigh:
		return "Высокий"
	case SeverityMedium:
		return "Средний"
	default:
		return "Низкий"
	}
}

// MarshalText encodes the severity as its English name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finding is the output of one rule
type Finding struct {
	Rule        string   `json:"rule"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Report holds findings ordered by severity, most severe first.
// Findings of equal severity keep rule evaluation order.
type Report []Finding

// MaxSeverity returns the highest severity present, or 0 for an empty report.
func (r Report) MaxSeverity() Severity {
	var max Severity
	for _, f := range r {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// sortFindings returns a copy of findings stably sorted by severity descending.
func sortFindings(findings []Finding) Report {
	report := make(Report, len(findings))
	copy(report, findings)
	sort.SliceStable(report, func(i, j int) bool {
		return report[i].Severity > report[j].Severity
	})
	return report
}
