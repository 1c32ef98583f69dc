package metrics

import (
	"sync"
	"sync/atomic"
)

// engineStats holds counters for the automation engine. Updated from the
// trigger hot path, so everything is atomic.
type engineStats struct {
	triggersFired  uint64
	rulesEvaluated uint64
	rulesMatched   uint64
	actionsRun     uint64
	actionsFailed  uint64
}

var engine engineStats

// IncTriggerFired counts one engine invocation (test runs included).
func IncTriggerFired() {
	atomic.AddUint64(&engine.triggersFired, 1)
}

// IncRuleEvaluated counts one rule evaluation and whether it matched.
func IncRuleEvaluated(matched bool) {
	atomic.AddUint64(&engine.rulesEvaluated, 1)
	if matched {
		atomic.AddUint64(&engine.rulesMatched, 1)
	}
}

// IncActionRun counts one action dispatch and whether it succeeded.
func IncActionRun(success bool) {
	atomic.AddUint64(&engine.actionsRun, 1)
	if !success {
		atomic.AddUint64(&engine.actionsFailed, 1)
	}
}

// EngineSnapshot is a point-in-time copy of the engine counters.
type EngineSnapshot struct {
	TriggersFired  uint64 `json:"triggers_fired"`
	RulesEvaluated uint64 `json:"rules_evaluated"`
	RulesMatched   uint64 `json:"rules_matched"`
	ActionsRun     uint64 `json:"actions_run"`
	ActionsFailed  uint64 `json:"actions_failed"`
}

// SnapshotEngine returns a copy of the current engine counters.
func SnapshotEngine() EngineSnapshot {
	return EngineSnapshot{
		TriggersFired:  atomic.LoadUint64(&engine.triggersFired),
		RulesEvaluated: atomic.LoadUint64(&engine.rulesEvaluated),
		RulesMatched:   atomic.LoadUint64(&engine.rulesMatched),
		ActionsRun:     atomic.LoadUint64(&engine.actionsRun),
		ActionsFailed:  atomic.LoadUint64(&engine.actionsFailed),
	}
}

// rateLimitStats holds counters for rate limit drops (HTTP 429).
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
}

// RateLimitSnapshot returns a copy of the current counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}
