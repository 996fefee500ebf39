package ensemble

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultClusterThreshold is the lexical similarity above which two
// responses count as near-duplicates of each other.
const DefaultClusterThreshold = 0.8

const defaultMaxFragments = 20

// sentenceBoundary splits an answer into fragments: a literal "---", a "#",
// or a period followed by whitespace.
var sentenceBoundary = regexp.MustCompile(`---|#|\.\s`)

// MajorityVote clusters the raw responses by lexical similarity and answers
// with the largest cluster's representative, post-processed. It needs no
// external service and ignores the relevance filter.
type MajorityVote struct {
	// Threshold overrides DefaultClusterThreshold when > 0.
	Threshold float64
	// EnsemblingDelay paces the ensembling stage event before the real work.
	EnsemblingDelay time.Duration
	// MaxFragments bounds the rejoined answer; defaults to 20.
	MaxFragments int
}

func (mv *MajorityVote) Name() string { return "majority-vote" }

func (mv *MajorityVote) Build(ctx context.Context, prompt string, responses []CandidateResponse, emit Emitter) (Consensus, error) {
	if err := emit.Emit(StageEvent(StageEnsembling)); err != nil {
		return Consensus{}, err
	}
	if err := pause(ctx, mv.EnsemblingDelay); err != nil {
		return Consensus{}, err
	}
	if len(responses) == 0 {
		return Consensus{Answer: ApologyAnswer}, nil
	}
	threshold := mv.Threshold
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}
	winner := mv.vote(responses, threshold)
	maxFragments := mv.MaxFragments
	if maxFragments <= 0 {
		maxFragments = defaultMaxFragments
	}
	return Consensus{Answer: postProcess(winner, prompt, maxFragments)}, nil
}

type cluster struct {
	rep   string
	count int
}

// vote groups responses into clusters in arrival order. A response joins the
// first existing cluster whose representative it resembles; representatives
// are never updated. The winner is the representative with the strictly
// largest count, so the first-seen cluster wins ties.
func (mv *MajorityVote) vote(responses []CandidateResponse, threshold float64) string {
	var clusters []*cluster
	for _, r := range responses {
		matched := false
		for _, c := range clusters {
			if lexicalSimilarity(r.Text, c.rep) >= threshold {
				c.count++
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, &cluster{rep: r.Text, count: 1})
		}
	}
	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.count > best.count {
			best = c
		}
	}
	return best.rep
}

// lexicalSimilarity is a normalized edit-distance score:
// 1 - lev(a,b)/max(len(a),len(b)), over runes.
func lexicalSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(maxLen)
}

// postProcess cleans the winning text: strip a leading echo of the prompt
// and a leading "Answer:" label (both case-insensitive), split on sentence
// boundaries, drop empty and duplicate fragments, and rejoin up to
// maxFragments fragments. Applying it twice yields the same string.
func postProcess(answer, prompt string, maxFragments int) string {
	s := strings.TrimSpace(answer)
	if p := strings.TrimSpace(prompt); p != "" && len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
		s = strings.TrimSpace(s[len(p):])
	}
	const label = "answer:"
	if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
		s = strings.TrimSpace(s[len(label):])
	}
	parts := sentenceBoundary.Split(s, -1)
	seen := make(map[string]struct{}, len(parts))
	frags := make([]string, 0, len(parts))
	for _, part := range parts {
		f := strings.TrimSpace(part)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		frags = append(frags, f)
	}
	switch {
	case len(frags) == 0:
		return ""
	case len(frags) == 1:
		return frags[0]
	}
	if len(frags) > maxFragments {
		frags = frags[:maxFragments]
	}
	// A fragment keeps a trailing period only when the source doubled it;
	// drop it so the joined answer re-splits to itself.
	joined := make([]string, 0, len(frags))
	for _, f := range frags {
		if f = strings.TrimRight(f, "."); f != "" {
			joined = append(joined, f)
		}
	}
	return strings.Join(joined, " ")
}
