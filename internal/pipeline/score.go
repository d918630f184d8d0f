package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/config"
)

// Quality notes, in the order they are reported.
const (
	NoteNoPhone          = "no phone number"
	NoteNoEmail          = "no email address"
	NoteNoDecisionMaker  = "no decision maker identified"
	NoteNPIBelow         = "NPI match below confidence threshold"
	NoteNoNPI            = "no NPI match"
	NotePostedUnknown    = "posting date unknown"
	NoteEnrichmentFailed = "enrichment lookup failed"
	// NoteConflicts is followed by the sorted, comma separated field names.
	NoteConflicts = "conflicting values across sources: "
)

// Signals is everything the scorer looks at for one candidate.
type Signals struct {
	HasPhone          bool
	HasEmail          bool
	HasDecisionMaker  bool
	HasNPI            bool
	NPIBelowThreshold bool
	// Freshness is in [0,1]; see FreshnessPolicy.Freshness.
	Freshness        float64
	PostedKnown      bool
	EnrichmentFailed bool
	// Conflicts names the fields on which merged postings disagreed. They
	// add a note but never change the confidence.
	Conflicts []string
}

// Assessment is the scorer's verdict.
type Assessment struct {
	Confidence float64
	Notes      []string
}

// FreshnessPolicy describes how posting age maps to a freshness ratio.
type FreshnessPolicy struct {
	// Staleness is the age up to which a posting counts as fully fresh.
	Staleness time.Duration
	// Horizon is the age at which freshness reaches zero.
	Horizon time.Duration
}

// DefaultFreshnessPolicy is fresh for 24h, decaying to zero at 7 days.
func DefaultFreshnessPolicy() FreshnessPolicy {
	return FreshnessPolicy{Staleness: 24 * time.Hour, Horizon: 7 * 24 * time.Hour}
}

// DefaultWeights returns the default confidence weights.
func DefaultWeights() config.ConfidenceWeights {
	return config.ConfidenceWeights{
		Phone:         0.25,
		Email:         0.20,
		DecisionMaker: 0.15,
		NPI:           0.15,
		Freshness:     0.25,
	}
}

// Freshness returns 1 for postings no older than the staleness window
// (including future dates), decays linearly to 0 at the horizon and is 0
// for unknown dates.
func (f FreshnessPolicy) Freshness(posted *time.Time, now time.Time) float64 {
	if posted == nil {
		return 0
	}
	age := now.Sub(*posted)
	if age <= f.Staleness {
		return 1
	}
	if age >= f.Horizon || f.Horizon <= f.Staleness {
		return 0
	}
	return 1 - float64(age-f.Staleness)/float64(f.Horizon-f.Staleness)
}

// validWeights returns w, or the defaults when w is negative anywhere or
// does not sum to 1.
func validWeights(w config.ConfidenceWeights) config.ConfidenceWeights {
	if w.Phone < 0 || w.Email < 0 || w.DecisionMaker < 0 || w.NPI < 0 || w.Freshness < 0 ||
		math.Abs(w.Sum()-1) > 1e-6 {
		zap.L().Warn("score: invalid confidence weights, using defaults", zap.Float64("sum", w.Sum()))
		return DefaultWeights()
	}
	return w
}

// Score computes confidence and quality notes. It is pure apart from a
// warning when the weights are invalid.
func Score(s Signals, w config.ConfidenceWeights, policy FreshnessPolicy) Assessment {
	w = validWeights(w)

	conf := w.Freshness * clamp01(s.Freshness)
	if s.HasPhone {
		conf += w.Phone
	}
	if s.HasEmail {
		conf += w.Email
	}
	if s.HasDecisionMaker {
		conf += w.DecisionMaker
	}
	if s.HasNPI {
		conf += w.NPI
	}

	notes := make([]string, 0, 7)
	if !s.HasPhone {
		notes = append(notes, NoteNoPhone)
	}
	if !s.HasEmail {
		notes = append(notes, NoteNoEmail)
	}
	if !s.HasDecisionMaker {
		notes = append(notes, NoteNoDecisionMaker)
	}
	if !s.HasNPI {
		if s.NPIBelowThreshold {
			notes = append(notes, NoteNPIBelow)
		} else {
			notes = append(notes, NoteNoNPI)
		}
	}
	switch {
	case !s.PostedKnown:
		notes = append(notes, NotePostedUnknown)
	case s.Freshness < 1:
		notes = append(notes, staleNote(policy))
	}
	if s.EnrichmentFailed {
		notes = append(notes, NoteEnrichmentFailed)
	}
	if len(s.Conflicts) > 0 {
		notes = append(notes, conflictNote(s.Conflicts))
	}

	return Assessment{Confidence: clamp01(conf), Notes: notes}
}

func conflictNote(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return NoteConflicts + strings.Join(sorted, ", ")
}

func staleNote(p FreshnessPolicy) string {
	return fmt.Sprintf("posting older than %dh", int(p.Staleness.Hours()))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
