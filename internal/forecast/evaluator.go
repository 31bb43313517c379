package forecast

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Evaluator runs the risk rules against a snapshot
type Evaluator struct {
	now   func() time.Time
	rules []rule
}

// NewEvaluator creates an evaluator with the standard rule set.
// now supplies the reference instant; nil means time.Now.
func NewEvaluator(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now, rules: defaultRules}
}

// Evaluate applies every rule and returns the findings, most severe first.
// A failing rule contributes nothing and does not stop the others.
func (e *Evaluator) Evaluate(s Snapshot) Report {
	now := e.now().UTC()

	var findings []Finding
	for _, r := range e.rules {
		finding, err := runRule(r, s, now)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				log.Printf("Warning: rule %s skipped: %v", r.name, err)
			} else {
				log.Printf("Error evaluating rule %s: %v", r.name, err)
			}
			continue
		}
		if finding != nil {
			findings = append(findings, *finding)
		}
	}

	report := sortFindings(findings)
	log.Printf("Evaluated %d rules, %d findings", len(e.rules), len(report))
	return report
}

func runRule(r rule, s Snapshot, now time.Time) (finding *Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			finding = nil
			err = fmt.Errorf("rule %s panicked: %v", r.name, p)
		}
	}()
	return r.eval(s, now)
}
