package runlog

import "strings"

// RunDiff holds the issue movement between two consecutive runs.
type RunDiff struct {
	// New holds checks that regressed: not-ok now, ok or absent before.
	New []CheckResult
	// Fixed holds checks that recovered: ok now, not-ok before.
	Fixed []CheckResult
}

// Diff compares the current run against its predecessor. When no prior run
// exists (hasPrev false) nothing is marked new: there is no baseline to
// regress from.
func Diff(prev Run, hasPrev bool, current Run) RunDiff {
	var diff RunDiff
	if !hasPrev {
		return diff
	}

	prevSeverity := make(map[string]string, len(prev.Checks))
	for _, c := range prev.Checks {
		prevSeverity[checkKey(c)] = c.Severity
	}

	currentSeen := make(map[string]struct{}, len(current.Checks))
	for _, c := range current.Checks {
		key := checkKey(c)
		currentSeen[key] = struct{}{}
		before, existed := prevSeverity[key]

		if !isOk(c.Severity) && (!existed || isOk(before)) {
			diff.New = append(diff.New, c)
		}
		if isOk(c.Severity) && existed && !isOk(before) {
			diff.Fixed = append(diff.Fixed, c)
		}
	}

	// A check that vanished entirely counts as fixed too.
	for _, c := range prev.Checks {
		if isOk(c.Severity) {
			continue
		}
		if _, ok := currentSeen[checkKey(c)]; !ok {
			diff.Fixed = append(diff.Fixed, c)
		}
	}

	return diff
}

func checkKey(c CheckResult) string {
	return c.Category + "\x00" + c.Check
}

func isOk(severity string) bool {
	return strings.EqualFold(severity, SeverityOk)
}
