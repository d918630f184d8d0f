package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/model"
)

// PlannerDefaults fill in whatever the caller left out of a query.
type PlannerDefaults struct {
	Regions     []string
	TargetTotal int
	Keyword     string
}

// Plan turns a query into one task per region and returns the clamped
// target. Regions keep the caller's order with duplicates removed.
func Plan(opts model.LeadQueryOptions, d PlannerDefaults) ([]model.Task, int, error) {
	regions := d.Regions
	if len(opts.States) > 0 {
		regions = normalizeStates(opts.States)
		if len(regions) == 0 {
			return nil, 0, eris.Wrapf(ErrInvalidOptions, "no valid state in %v", opts.States)
		}
	} else {
		regions = normalizeStates(regions)
	}
	if len(regions) == 0 {
		return nil, 0, eris.Wrap(ErrInvalidOptions, "no regions configured")
	}

	target := opts.TargetTotal
	if target <= 0 {
		target = d.TargetTotal
	}
	if target > model.MaxTargetTotal {
		target = model.MaxTargetTotal
	}
	if target <= 0 {
		return nil, 0, eris.Wrapf(ErrInvalidOptions, "target total %d", target)
	}

	keyword := strings.TrimSpace(opts.Keyword)
	if keyword == "" {
		keyword = d.Keyword
	}

	quota := (target + len(regions) - 1) / len(regions)
	tasks := make([]model.Task, len(regions))
	for i, r := range regions {
		tasks[i] = model.Task{Region: r, Keyword: keyword, Quota: quota}
	}
	return tasks, target, nil
}

// normalizeStates upper-cases and de-duplicates region codes, dropping
// anything that is not two ASCII letters.
func normalizeStates(states []string) []string {
	seen := make(map[string]bool, len(states))
	out := make([]string, 0, len(states))
	for _, s := range states {
		code := strings.ToUpper(strings.TrimSpace(s))
		if !isStateCode(code) {
			if code != "" {
				zap.L().Warn("plan: ignoring invalid state", zap.String("state", s))
			}
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func isStateCode(s string) bool {
	return len(s) == 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z'
}
