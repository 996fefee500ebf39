// Package ensemble implements the response-synthesis pipeline: sequential
// fan-out over the configured models, relevance filtering, consensus
// building, and the staged progress-event protocol the caller observes
// while the run executes.
//
// A run is ephemeral. It owns one ordered sequence of candidate responses,
// emits stage events in a fixed order, and terminates with exactly one
// result or error event. Candidate responses are never mutated after
// creation and are discarded when the run ends.
//
// Two consensus strategies are provided behind the Strategy interface:
// WeightedSummarizer (relevance-filter, repeat by feedback weight,
// summarize) and MajorityVote (cluster near-duplicates, pick the largest
// cluster's representative). The orchestrator is parameterized by strategy,
// not duplicated per strategy.
package ensemble
