// Package rules implements the pure eligibility evaluator: filtering a
// candidate pool through a task's rule set and ranking the survivors by a
// deterministic score. The package performs no I/O so it can be tested in
// isolation from the store, cache and lock layers.
package rules

import (
	"encoding/json"
	"math"
	"sort"
)

// Candidate is one user considered for assignment to a task. Field names
// follow the user service wire format; unknown fields are ignored on decode.
type Candidate struct {
	ID              int    `json:"id"`
	Department      string `json:"department"`
	ExperienceYears int    `json:"experience_years"`
	ActiveTaskCount int    `json:"active_task_count"`
}

// RuleSet is the closed set of constraints a task can impose on candidates.
// A nil field imposes no constraint.
type RuleSet struct {
	Department     *string
	MinExperience  *int
	MaxActiveTasks *int
}

// Ranked pairs a candidate with its computed score.
type Ranked struct {
	Candidate Candidate
	Score     int
}

// Decode builds a RuleSet from a loosely typed rule mapping as decoded from
// JSON. Unknown keys are dropped. Numeric rules apply only when the value is
// an integral number; strings, bools, fractional numbers and nulls leave the
// rule absent rather than failing. An empty department string imposes no
// constraint.
func Decode(raw map[string]any) RuleSet {
	var rs RuleSet
	if v, ok := raw["department"]; ok {
		if s, ok := v.(string); ok && s != "" {
			rs.Department = &s
		}
	}
	if v, ok := raw["min_experience"]; ok {
		if n, ok := intValue(v); ok {
			rs.MinExperience = &n
		}
	}
	if v, ok := raw["max_active_tasks"]; ok {
		if n, ok := intValue(v); ok {
			rs.MaxActiveTasks = &n
		}
	}
	return rs
}

// intValue extracts an integer from a decoded JSON value. encoding/json
// produces float64 for numbers, so integral floats count as integers.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// Matches reports whether the candidate satisfies every constraint in the
// set. Absent constraints pass vacuously.
func (rs RuleSet) Matches(c Candidate) bool {
	if rs.Department != nil && c.Department != *rs.Department {
		return false
	}
	if rs.MinExperience != nil && c.ExperienceYears < *rs.MinExperience {
		return false
	}
	if rs.MaxActiveTasks != nil && c.ActiveTaskCount > *rs.MaxActiveTasks {
		return false
	}
	return true
}

// Empty reports whether the rule set imposes no constraints at all.
func (rs RuleSet) Empty() bool {
	return rs.Department == nil && rs.MinExperience == nil && rs.MaxActiveTasks == nil
}

// Score computes the assignment priority of a candidate. Lower current load
// dominates; experience separates candidates with equal load. Active counts
// above 100 push the score negative, which only lowers priority.
func Score(c Candidate) int {
	return (100-c.ActiveTaskCount)*3 + c.ExperienceYears*2
}

// Filter returns the candidates satisfying the rule set, preserving input
// order.
func Filter(candidates []Candidate, rs RuleSet) []Candidate {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if rs.Matches(c) {
			eligible = append(eligible, c)
		}
	}
	return eligible
}

// Rank scores candidates and orders them by descending score. Candidates
// with equal scores keep their relative input order; that stability is the
// tie-break contract, so the sort must stay stable.
func Rank(candidates []Candidate) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, Ranked{Candidate: c, Score: Score(c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Evaluate filters candidates through the rule set and ranks the survivors.
func Evaluate(candidates []Candidate, rs RuleSet) []Ranked {
	return Rank(Filter(candidates, rs))
}
