// Package retrieval selects a bounded, relevant, policy-compliant slice
// of the persistent memory store to ground the persona's next response.
//
// Per turn the pipeline runs:
//
//	message -> keywords -> enhanced keywords -> parallel multi-source
//	search -> merged candidate pool -> relevance scoring -> diversity
//	adjustment -> theater-zone lane filter -> size-bounded assembly
//	-> context + trace
//
// Failure posture: retrieval never aborts a conversational turn. A
// source that errors or times out contributes nothing and is recorded
// in the trace; malformed numeric fields are clamped; the worst case is
// an empty context with a trace explaining what happened.
package retrieval
