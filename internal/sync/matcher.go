package sync

import (
	"fmt"
	"math"
	"sort"

	"github.com/sonarkit-io/sonarkit/internal/findings"
)

const (
	// maxScore is the highest fuzzy score a candidate pair can reach.
	maxScore = 9
	// qualifyingScore is the minimum fuzzy score for an approximate match.
	qualifyingScore = 8
)

// Confidence grades how a source finding was paired to a target.
type Confidence string

const (
	MatchClean       Confidence = "clean"
	MatchApproximate Confidence = "approximate"
	MatchAmbiguous   Confidence = "ambiguous"
	MatchNone        Confidence = "unmatched"
)

// Candidate is one potential target finding with its similarity score.
type Candidate struct {
	Key   string `json:"key"`
	Score int    `json:"score"`
}

// MatchResult pairs one source finding with at most one target finding.
// Ambiguous results carry every competing candidate with its score instead
// of picking one.
type MatchResult struct {
	Confidence Confidence
	Source     findings.Finding
	Target     *findings.Finding
	Score      int
	Candidates []Candidate
	Reason     string
}

// Matcher pairs the findings of a source snapshot with those of a target
// snapshot. Use NewMatcher to create an instance and call Process to compute
// the pairing; Results returns one MatchResult per source finding. A target,
// once consumed by a clean or approximate match, is excluded from the
// candidate pool for subsequent source findings, so the pairing is
// one-to-one within a run.
type Matcher struct {
	source *Snapshot
	target *Snapshot

	results   []MatchResult
	processed bool
}

// NewMatcher constructs a Matcher over the two snapshots. The matcher is
// inert until Process is called.
func NewMatcher(source, target *Snapshot) *Matcher {
	return &Matcher{
		source: source,
		target: target,
	}
}

// identityTuple is the clean-match grouping key. Findings of different kinds
// never share a tuple.
type identityTuple struct {
	kind    findings.Kind
	rule    string
	hash    string
	message string
	path    string
}

func tupleOf(f findings.Finding) identityTuple {
	return identityTuple{
		kind:    f.Kind,
		rule:    f.Rule,
		hash:    f.Hash,
		message: f.Message,
		path:    f.FilePath,
	}
}

// Process computes the pairing in two passes. The clean pass groups targets
// by (rule, hash, message, file path): a source with exactly one available
// group member matches cleanly, several members fall back to the nearest
// line number, and an unresolved line tie is ambiguous. Sources whose group
// is empty go through the fuzzy pass, scoring every remaining target of the
// same kind: exactly one qualifying candidate is an approximate match,
// several are ambiguous, none is unmatched. Sources are visited in key order
// so target consumption is reproducible. Process is idempotent.
func (m *Matcher) Process() {
	if m.processed {
		return
	}

	sources := sortedByKey(m.source.Findings)
	targetKeys := sortedKeys(m.target.Findings)
	consumed := make(map[string]bool)

	groups := make(map[identityTuple][]string)
	for _, tk := range targetKeys {
		t := m.target.Findings[tk]
		tuple := tupleOf(t)
		groups[tuple] = append(groups[tuple], tk)
	}

	var fuzzySources []findings.Finding
	for _, src := range sources {
		var avail []findings.Finding
		for _, tk := range groups[tupleOf(src)] {
			if !consumed[tk] {
				avail = append(avail, m.target.Findings[tk])
			}
		}

		switch {
		case len(avail) == 0:
			fuzzySources = append(fuzzySources, src)
		case len(avail) == 1:
			target := avail[0]
			consumed[target.Key] = true
			m.results = append(m.results, MatchResult{
				Confidence: MatchClean,
				Source:     src,
				Target:     &target,
				Score:      maxScore,
			})
		default:
			if target, ok := nearestByLine(src, avail); ok {
				consumed[target.Key] = true
				m.results = append(m.results, MatchResult{
					Confidence: MatchClean,
					Source:     src,
					Target:     target,
					Score:      maxScore,
				})
				continue
			}
			m.results = append(m.results, MatchResult{
				Confidence: MatchAmbiguous,
				Source:     src,
				Candidates: scoreCandidates(src, avail),
				Reason:     fmt.Sprintf("%d targets share the identity tuple at the same line distance", len(avail)),
			})
		}
	}

	for _, src := range fuzzySources {
		var qualifying []findings.Finding
		var scores []int
		for _, tk := range targetKeys {
			if consumed[tk] {
				continue
			}
			t := m.target.Findings[tk]
			if t.Kind != src.Kind {
				continue
			}
			if s := Score(src, t); s >= qualifyingScore {
				qualifying = append(qualifying, t)
				scores = append(scores, s)
			}
		}

		switch len(qualifying) {
		case 0:
			m.results = append(m.results, MatchResult{
				Confidence: MatchNone,
				Source:     src,
				Reason:     fmt.Sprintf("no target scored %d or higher", qualifyingScore),
			})
		case 1:
			target := qualifying[0]
			consumed[target.Key] = true
			m.results = append(m.results, MatchResult{
				Confidence: MatchApproximate,
				Source:     src,
				Target:     &target,
				Score:      scores[0],
			})
		default:
			candidates := make([]Candidate, len(qualifying))
			for i, t := range qualifying {
				candidates[i] = Candidate{Key: t.Key, Score: scores[i]}
			}
			sort.SliceStable(candidates, func(i, j int) bool {
				if candidates[i].Score != candidates[j].Score {
					return candidates[i].Score > candidates[j].Score
				}
				return candidates[i].Key < candidates[j].Key
			})
			m.results = append(m.results, MatchResult{
				Confidence: MatchAmbiguous,
				Source:     src,
				Candidates: candidates,
				Reason:     fmt.Sprintf("%d targets scored %d or higher", len(qualifying), qualifyingScore),
			})
		}
	}

	m.processed = true
}

// Results returns one MatchResult per source finding. If Process has not yet
// been run it will be invoked.
func (m *Matcher) Results() []MatchResult {
	if !m.processed {
		m.Process()
	}
	return m.results
}

// Score computes the fuzzy similarity between two findings as an integer
// between 0 and 9. The function is pure and symmetric: swapping the
// arguments yields the same score.
func Score(a, b findings.Finding) int {
	score := 0

	switch {
	case a.Message == b.Message:
		score += 2
	case similarityRatio(a.Message, b.Message) >= nearEqualThreshold:
		score++
	}
	if a.FilePath == b.FilePath {
		score++
	}
	// Line matches when both sides carry the same line; two findings without
	// any line also match, one side missing fails the criterion.
	if !a.HasLine() && !b.HasLine() {
		score++
	} else if a.HasLine() && b.HasLine() && a.LineValue() == b.LineValue() {
		score++
	}
	if a.Component == b.Component {
		score++
	}
	if a.Author == b.Author {
		score++
	}
	if a.Type == b.Type {
		score++
	}
	if a.Severity == b.Severity {
		score++
	}
	if a.Hash == b.Hash {
		score++
	}

	return score
}

// nearestByLine picks the candidate whose line number is closest to the
// source's. Candidates without a line rank behind all candidates with one.
// Returns false when the minimum distance is held by more than one candidate.
func nearestByLine(src findings.Finding, candidates []findings.Finding) (*findings.Finding, bool) {
	best := math.MaxInt
	bestCount := 0
	var bestTarget findings.Finding

	for _, cand := range candidates {
		dist := lineDistance(src, cand)
		switch {
		case dist < best:
			best = dist
			bestCount = 1
			bestTarget = cand
		case dist == best:
			bestCount++
		}
	}

	if bestCount != 1 {
		return nil, false
	}
	return &bestTarget, true
}

// lineDistance measures how far apart two findings are anchored. Both sides
// without a line are at distance zero; a single missing line pushes the pair
// beyond every real distance.
func lineDistance(a, b findings.Finding) int {
	if !a.HasLine() && !b.HasLine() {
		return 0
	}
	if !a.HasLine() || !b.HasLine() {
		return math.MaxInt
	}
	d := a.LineValue() - b.LineValue()
	if d < 0 {
		d = -d
	}
	return d
}

// scoreCandidates annotates each candidate with its fuzzy score, ordered by
// score descending then key.
func scoreCandidates(src findings.Finding, candidates []findings.Finding) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, cand := range candidates {
		out[i] = Candidate{Key: cand.Key, Score: Score(src, cand)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// sortedByKey returns the findings of a snapshot map ordered by key.
func sortedByKey(m map[string]findings.Finding) []findings.Finding {
	out := make([]findings.Finding, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

// sortedKeys returns the map keys in ascending order.
func sortedKeys(m map[string]findings.Finding) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
