// Package recommend maps a symptom tier and a high-risk visit flag to an
// isolation and testing recommendation. The decision table is a Mangle
// program evaluated against per-call facts.
package recommend

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"covidtrack/internal/logging"
	"covidtrack/internal/symptom"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

//go:embed policy.mg
var policySource string

// Recommendation is the disposition shown to the patient.
type Recommendation int

const (
	// Unspecified means the policy has no rule for the inputs.
	Unspecified Recommendation = iota
	NoIsolation
	IsolateAtHomeAdvisory
	IsolateAndMonitor
	IsolateAndTestNow
)

var adviceCodes = map[string]Recommendation{
	"/no_isolation":          NoIsolation,
	"/isolate_home_advisory": IsolateAtHomeAdvisory,
	"/isolate_monitor":       IsolateAndMonitor,
	"/isolate_test_now":      IsolateAndTestNow,
}

// Message returns the sentence shown to the patient.
func (r Recommendation) Message() string {
	switch r {
	case NoIsolation:
		return "We do not recommend you isolate at the moment."
	case IsolateAtHomeAdvisory:
		return "Please isolate at home, if you have any symptoms, please immediately test for COVID."
	case IsolateAndMonitor:
		return "We do not recommend you get tested, however please isolate at home and get tested if your symptoms worsen."
	case IsolateAndTestNow:
		return "Please immediately isolate and test for COVID as soon as possible."
	default:
		return "No recommendation is available for the reported symptoms."
	}
}

func (r Recommendation) String() string {
	switch r {
	case NoIsolation:
		return "no-isolation"
	case IsolateAtHomeAdvisory:
		return "isolate-home-advisory"
	case IsolateAndMonitor:
		return "isolate-and-monitor"
	case IsolateAndTestNow:
		return "isolate-and-test-now"
	default:
		return "unspecified"
	}
}

// Policy is the analyzed recommendation program. It is safe for concurrent
// use; each evaluation gets its own fact store.
type Policy struct {
	programInfo *analysis.ProgramInfo
}

// NewPolicy compiles the built-in policy.
func NewPolicy() (*Policy, error) {
	return ParsePolicy(policySource)
}

// ParsePolicy compiles a policy from Mangle source. The program must derive
// advice/1 from visited/1, tier/1 and symptomatic/1.
func ParsePolicy(source string) (*Policy, error) {
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze policy: %w", err)
	}
	return &Policy{programInfo: programInfo}, nil
}

// Recommend evaluates the policy for one assessment.
func (p *Policy) Recommend(tier symptom.Tier, visitedHighRisk bool) (Recommendation, error) {
	store := factstore.NewSimpleInMemoryStore()

	facts, err := inputFacts(tier, visitedHighRisk)
	if err != nil {
		return Unspecified, err
	}
	for _, f := range facts {
		store.Add(f)
	}

	if _, err := engine.EvalProgramWithStats(p.programInfo, store); err != nil {
		return Unspecified, fmt.Errorf("evaluate policy: %w", err)
	}

	result := Unspecified
	query := ast.NewQuery(ast.PredicateSym{Symbol: "advice", Arity: 1})
	err = store.GetFacts(query, func(atom ast.Atom) error {
		c, ok := atom.Args[0].(ast.Constant)
		if !ok {
			return nil
		}
		// Rules are mutually exclusive; if a custom policy overlaps, keep the
		// most cautious advice.
		if rec, known := adviceCodes[c.Symbol]; known && rec > result {
			result = rec
		}
		return nil
	})
	if err != nil {
		return Unspecified, fmt.Errorf("query advice: %w", err)
	}

	logging.PolicyDebug("Policy: tier=%d visited=%v -> %s", tier, visitedHighRisk, result)
	return result, nil
}

func inputFacts(tier symptom.Tier, visitedHighRisk bool) ([]ast.Atom, error) {
	if tier < symptom.NoneReported {
		return nil, fmt.Errorf("invalid tier %d", int(tier))
	}
	answer := "/no"
	if visitedHighRisk {
		answer = "/yes"
	}
	level := "/none"
	if tier != symptom.NoneReported {
		level = fmt.Sprintf("/tier%d", int(tier))
	}

	answerName, err := ast.Name(answer)
	if err != nil {
		return nil, err
	}
	levelName, err := ast.Name(level)
	if err != nil {
		return nil, err
	}

	facts := []ast.Atom{
		ast.NewAtom("visited", answerName),
		ast.NewAtom("tier", levelName),
	}
	if tier != symptom.NoneReported {
		facts = append(facts, ast.NewAtom("symptomatic", levelName))
	}
	return facts, nil
}

var defaultPolicy = sync.OnceValues(NewPolicy)

// Recommend evaluates the built-in policy. Evaluation failures are logged and
// reported as Unspecified.
func Recommend(tier symptom.Tier, visitedHighRisk bool) Recommendation {
	p, err := defaultPolicy()
	if err != nil {
		logging.Get(logging.CategoryPolicy).Error("Built-in policy failed to compile: %v", err)
		return Unspecified
	}
	rec, err := p.Recommend(tier, visitedHighRisk)
	if err != nil {
		logging.Get(logging.CategoryPolicy).Error("Policy evaluation failed: %v", err)
		return Unspecified
	}
	return rec
}
