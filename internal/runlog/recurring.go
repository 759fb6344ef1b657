package runlog

import (
	"sort"
	"strings"
)

// RecurringIssue is a check that keeps failing across recent runs.
type RecurringIssue struct {
	Category       string
	Check          string
	Occurrences    int
	Prevalence     float64
	WorstSeverity  string
	Recommendation string
}

// severityRank orders severities for picking the worst observation.
var severityRank = map[string]int{
	SeverityOk: 0,
	"info":     1,
	"warning":  2,
	"high":     3,
	"critical": 4,
}

// MineRecurring aggregates failing checks across the supplied runs and
// returns those present in at least minOccurrences runs, worst first.
func MineRecurring(runs []Run, minOccurrences int) []RecurringIssue {
	if len(runs) == 0 {
		return nil
	}
	if minOccurrences <= 0 {
		minOccurrences = 2
	}

	type aggregate struct {
		issue RecurringIssue
		seen  map[string]struct{}
	}
	byKey := make(map[string]*aggregate)

	for _, run := range runs {
		for _, c := range run.Checks {
			if isOk(c.Severity) {
				continue
			}
			key := checkKey(c)
			agg, ok := byKey[key]
			if !ok {
				agg = &aggregate{
					issue: RecurringIssue{Category: c.Category, Check: c.Check},
					seen:  make(map[string]struct{}),
				}
				byKey[key] = agg
			}
			if _, counted := agg.seen[run.ID]; counted {
				continue
			}
			agg.seen[run.ID] = struct{}{}
			agg.issue.Occurrences++
			if severityRank[strings.ToLower(c.Severity)] >= severityRank[strings.ToLower(agg.issue.WorstSeverity)] {
				agg.issue.WorstSeverity = c.Severity
				agg.issue.Recommendation = c.Recommendation
			}
		}
	}

	issues := make([]RecurringIssue, 0, len(byKey))
	for _, agg := range byKey {
		if agg.issue.Occurrences < minOccurrences {
			continue
		}
		agg.issue.Prevalence = float64(agg.issue.Occurrences) / float64(len(runs))
		issues = append(issues, agg.issue)
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Occurrences != issues[j].Occurrences {
			return issues[i].Occurrences > issues[j].Occurrences
		}
		return severityRank[strings.ToLower(issues[i].WorstSeverity)] > severityRank[strings.ToLower(issues[j].WorstSeverity)]
	})
	return issues
}
