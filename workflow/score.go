package workflow

import "slices"

// Weights assigns relative importance to each scoring criterion. Domains
// supply their own weights through policy configuration; the composition
// contract is identical everywhere.
type Weights struct {
	Capability float64 `yaml:"capability"`
	Proximity  float64 `yaml:"proximity"`
	Compliance float64 `yaml:"compliance"`
	Workload   float64 `yaml:"workload"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Capability + w.Proximity + w.Compliance + w.Workload
}

// Compose folds a per-criterion breakdown into a single [0,1] score using
// the given weights. Missing criteria contribute zero.
func Compose(breakdown map[Criterion]float64, w Weights) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}

	score := breakdown[CriterionCapability]*w.Capability +
		breakdown[CriterionProximity]*w.Proximity +
		breakdown[CriterionCompliance]*w.Compliance +
		breakdown[CriterionWorkload]*w.Workload

	return clamp01(score / total)
}

// CapabilityMatch returns the fraction of required capabilities the
// candidate provides. A requirement with no capabilities always matches.
func CapabilityMatch(required, available []string) float64 {
	if len(required) == 0 {
		return 1
	}

	matched := 0
	for _, cap := range required {
		if slices.Contains(available, cap) {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// ProximityScore scores candidate locality against the requested location.
// Exact match scores 1, no stated preference scores 1, mismatch scores 0.
func ProximityScore(wanted, actual string) float64 {
	if wanted == "" || wanted == actual {
		return 1
	}
	return 0
}

// WorkloadBalance scores the predicted impact of adding load to the
// candidate: an idle resource scores 1, a saturated one scores 0.
func WorkloadBalance(load float64) float64 {
	return clamp01(1 - load)
}

// safeScore shields the engine from a faulty scorer. A scorer panic is a
// local computation error, not a run failure: the pair scores zero and the
// engine proceeds with a defined next state.
func safeScore(p Profile, req Requirement, c Candidate) (scored ScoredCandidate) {
	defer func() {
		if r := recover(); r != nil {
			scored = ScoredCandidate{Candidate: c, RequirementID: req.ID, Score: 0}
		}
	}()

	scored = p.Score(req, c)
	scored.Score = clamp01(scored.Score)
	return scored
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
