// Package transparency implements the commit/reveal protocol for purchase
// reasoning. A commit binds a hashed, undisclosed rationale to a listing
// before the trade settles; the reveal discloses the rationale afterwards and
// is verified against the stored hash. Commits left unrevealed past the
// configured window expire.
//
// State machine: committed -> revealed (terminal) or committed -> expired
// (terminal). The expiry timer and an in-flight reveal race on the same
// commit; both transitions re-check the status under the ledger mutex so a
// reveal that lands first always wins.
package transparency

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
	"github.com/hupe1980/intelmarket/mirror"
)

// Ledger is the in-memory commit/reveal store.
type Ledger struct {
	mu      sync.RWMutex
	commits map[string]*core.ReasoningCommit
	reveals map[string]*core.ReasoningReveal
	timers  map[string]*time.Timer

	timeout      time.Duration
	lateFraction float64
	audit        *mirror.Tee
	logger       logging.Logger
	now          func() time.Time
}

// NewLedger constructs an empty transparency ledger. timeout is the reveal
// window; lateFraction is the fraction of that window past which a reveal
// counts as late for trust scoring. audit may be nil to disable mirroring.
func NewLedger(timeout time.Duration, lateFraction float64, audit *mirror.Tee, logger logging.Logger) *Ledger {
	return &Ledger{
		commits:      make(map[string]*core.ReasoningCommit),
		reveals:      make(map[string]*core.ReasoningReveal),
		timers:       make(map[string]*time.Timer),
		timeout:      timeout,
		lateFraction: lateFraction,
		audit:        audit,
		logger:       logging.OrNoOp(logger),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Commit stores a hash binding the reasoning to a new commit id, schedules the
// expiry timer and fire-and-forgets the audit mirror. The local commit never
// blocks on, or fails because of, the mirror.
func (l *Ledger) Commit(agentKey, listingID string, reasoning core.Reasoning) (*core.ReasoningCommit, error) {
	if agentKey == "" || listingID == "" {
		return nil, fmt.Errorf("%w: agent key and listing id are required", core.ErrInvalidInput)
	}
	if reasoning.Confidence < 0 || reasoning.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %v not in [0, 100]", core.ErrInvalidInput, reasoning.Confidence)
	}
	now := l.now()
	commit := &core.ReasoningCommit{
		ID:        core.NewID(),
		AgentKey:  agentKey,
		ListingID: listingID,
		Status:    core.CommitStatusCommitted,
		CreatedAt: now,
		ExpiresAt: now.Add(l.timeout),
	}
	commit.CommitHash = HashReasoning(reasoning, commit.ID)

	l.mu.Lock()
	l.commits[commit.ID] = commit
	l.timers[commit.ID] = time.AfterFunc(l.timeout, func() { l.expire(commit.ID) })
	l.mu.Unlock()

	l.logTransition(commit.ID, core.CommitStatusCommitted, agentKey)
	if l.audit != nil {
		snapshot := *commit
		go l.audit.Record(context.Background(), "commit/"+snapshot.ID, snapshot)
	}
	return commit.Clone(), nil
}

// logTransition prefers the structured commit helper when a MarketLogger is
// wired, falling back to the generic interface.
func (l *Ledger) logTransition(commitID string, status core.CommitStatus, agentKey string) {
	if ml, ok := l.logger.(*logging.MarketLogger); ok {
		ml.LogCommit(commitID, string(status), agentKey)
		return
	}
	l.logger.Debug("commit transition", "commit_id", commitID, "status", status, "agent_key", agentKey)
}

// expire transitions a still-committed commit to expired. Called by the timer;
// the status check under the mutex makes a racing reveal win if it landed
// first.
func (l *Ledger) expire(commitID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	commit, ok := l.commits[commitID]
	if !ok || commit.Status != core.CommitStatusCommitted {
		return
	}
	commit.Status = core.CommitStatusExpired
	delete(l.timers, commitID)
	if ml, ok := l.logger.(*logging.MarketLogger); ok {
		ml.LogCommit(commitID, string(core.CommitStatusExpired), commit.AgentKey)
	} else {
		l.logger.Warn("reasoning commit expired unrevealed", "commit_id", commitID, "agent_key", commit.AgentKey)
	}
}

// ExpireStale sweeps every commit whose window has passed relative to now.
// The timer path normally handles expiry; the sweep lets a scheduler-less
// embedding (or a test) drive it deterministically.
func (l *Ledger) ExpireStale(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	expired := 0
	for id, commit := range l.commits {
		if commit.Status == core.CommitStatusCommitted && now.After(commit.ExpiresAt) {
			commit.Status = core.CommitStatusExpired
			if timer, ok := l.timers[id]; ok {
				timer.Stop()
				delete(l.timers, id)
			}
			expired++
		}
	}
	return expired
}

// Reveal discloses the reasoning behind a commit. The supplied reasoning must
// hash to the stored commitment; the commit must still be in the committed
// state. On success the commit becomes revealed, which is terminal.
func (l *Ledger) Reveal(commitID string, reasoning core.Reasoning, transactionID string) (*core.ReasoningReveal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	commit, ok := l.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCommitNotFound, commitID)
	}
	if commit.Status != core.CommitStatusCommitted {
		return nil, fmt.Errorf("%w: status is %s", core.ErrInvalidState, commit.Status)
	}
	if HashReasoning(reasoning, commitID) != commit.CommitHash {
		return nil, fmt.Errorf("%w: commit %s", core.ErrHashMismatch, commitID)
	}
	now := l.now()
	commit.Status = core.CommitStatusRevealed
	commit.RevealedAt = &now
	if timer, ok := l.timers[commitID]; ok {
		timer.Stop()
		delete(l.timers, commitID)
	}
	reveal := &core.ReasoningReveal{
		CommitID:      commitID,
		TransactionID: transactionID,
		Reasoning:     reasoning,
		RevealedAt:    now,
	}
	l.reveals[commitID] = reveal
	l.logTransition(commitID, core.CommitStatusRevealed, commit.AgentKey)
	if l.audit != nil {
		snapshot := *reveal
		go l.audit.Record(context.Background(), "reveal/"+commitID, snapshot)
	}
	cp := *reveal
	return &cp, nil
}

// Get returns a clone of the commit with id.
func (l *Ledger) Get(commitID string) (*core.ReasoningCommit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	commit, ok := l.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCommitNotFound, commitID)
	}
	return commit.Clone(), nil
}

// Counts returns the number of commits per status.
func (l *Ledger) Counts() (committed, revealed, expired int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, commit := range l.commits {
		switch commit.Status {
		case core.CommitStatusCommitted:
			committed++
		case core.CommitStatusRevealed:
			revealed++
		case core.CommitStatusExpired:
			expired++
		}
	}
	return
}

// Close stops all pending expiry timers.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, timer := range l.timers {
		timer.Stop()
		delete(l.timers, id)
	}
}

// Verification is the result of checking a commit's trustworthiness.
type Verification struct {
	CommitID   string            `json:"commit_id"`
	Verified   bool              `json:"verified"`
	Status     core.CommitStatus `json:"status"`
	TrustScore int               `json:"trust_score"`
	Notes      []string          `json:"notes,omitempty"`
}

// Verify reports whether the commit was properly revealed and scores its
// trustworthiness in [0, 100]. Late reveals (past the late fraction of the
// window) and low confidence are penalized; detailed reasoning (three or more
// factors, substantial methodology text) avoids further deductions.
func (l *Ledger) Verify(commitID string) (*Verification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	commit, ok := l.commits[commitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCommitNotFound, commitID)
	}
	v := &Verification{CommitID: commitID, Status: commit.Status}
	if commit.Status != core.CommitStatusRevealed {
		v.Notes = append(v.Notes, fmt.Sprintf("commit is %s, not revealed", commit.Status))
		return v, nil
	}
	v.Verified = true
	score := 100
	reveal := l.reveals[commitID]
	lateBoundary := commit.CreatedAt.Add(time.Duration(float64(l.timeout) * l.lateFraction))
	if commit.RevealedAt != nil && commit.RevealedAt.After(lateBoundary) {
		score -= 25
		v.Notes = append(v.Notes, "revealed late in the commitment window")
	}
	if reveal.Reasoning.Confidence < 50 {
		score -= 20
		v.Notes = append(v.Notes, "low stated confidence")
	}
	if len(reveal.Reasoning.Factors) < 3 {
		score -= 10
		v.Notes = append(v.Notes, "fewer than three decision factors")
	}
	if len(reveal.Reasoning.Methodology) < 40 {
		score -= 5
		v.Notes = append(v.Notes, "sparse methodology")
	}
	if score < 0 {
		score = 0
	}
	v.TrustScore = score
	return v, nil
}

// Report aggregates an agent's transparency record over an optional time
// range.
type Report struct {
	AgentKey         string         `json:"agent_key"`
	Commits          int            `json:"commits"`
	Reveals          int            `json:"reveals"`
	Expired          int            `json:"expired"`
	TransparencyRate float64        `json:"transparency_rate"`
	AvgConfidence    float64        `json:"avg_confidence"`
	DecisionCounts   map[string]int `json:"decision_counts"`
	TopFactors       []string       `json:"top_factors,omitempty"`
	RiskProfile      string         `json:"risk_profile"`
}

var (
	aggressiveMarkers   = []string{"high", "volatile", "aggressive", "risky", "speculative"}
	conservativeMarkers = []string{"low", "safe", "stable", "hedge", "conservative"}
)

// Audit summarizes the agent's commit/reveal behavior: counts, the
// transparency rate (reveals over commits), decision-pattern statistics and a
// coarse risk profile derived from risk-note keywords and confidence levels.
// from and to bound the commit creation time when non-nil.
func (l *Ledger) Audit(agentKey string, from, to *time.Time) *Report {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := &Report{AgentKey: agentKey, DecisionCounts: make(map[string]int), RiskProfile: "unknown"}
	factorCounts := make(map[string]int)
	var confidenceSum, expectedValueSum float64
	var aggressive, conservative int

	for id, commit := range l.commits {
		if commit.AgentKey != agentKey {
			continue
		}
		if from != nil && commit.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && commit.CreatedAt.After(*to) {
			continue
		}
		report.Commits++
		switch commit.Status {
		case core.CommitStatusExpired:
			report.Expired++
			continue
		case core.CommitStatusCommitted:
			continue
		}
		reveal, ok := l.reveals[id]
		if !ok {
			continue
		}
		report.Reveals++
		confidenceSum += reveal.Reasoning.Confidence
		expectedValueSum += reveal.Reasoning.ExpectedValue
		report.DecisionCounts[reveal.Reasoning.Decision]++
		for _, factor := range reveal.Reasoning.Factors {
			factorCounts[strings.ToLower(factor)]++
		}
		note := strings.ToLower(reveal.Reasoning.RiskNote)
		for _, marker := range aggressiveMarkers {
			if strings.Contains(note, marker) {
				aggressive++
				break
			}
		}
		for _, marker := range conservativeMarkers {
			if strings.Contains(note, marker) {
				conservative++
				break
			}
		}
	}

	if report.Commits > 0 {
		report.TransparencyRate = float64(report.Reveals) / float64(report.Commits)
	}
	if report.Reveals > 0 {
		report.AvgConfidence = confidenceSum / float64(report.Reveals)
		report.TopFactors = topFactors(factorCounts, 5)
		report.RiskProfile = classifyRisk(aggressive, conservative, report.AvgConfidence, expectedValueSum/float64(report.Reveals))
	}
	return report
}

func topFactors(counts map[string]int, limit int) []string {
	factors := make([]string, 0, len(counts))
	for f := range counts {
		factors = append(factors, f)
	}
	sort.Slice(factors, func(i, j int) bool {
		if counts[factors[i]] != counts[factors[j]] {
			return counts[factors[i]] > counts[factors[j]]
		}
		return factors[i] < factors[j]
	})
	if len(factors) > limit {
		factors = factors[:limit]
	}
	return factors
}

// classifyRisk folds keyword counts and averages into a coarse label.
func classifyRisk(aggressive, conservative int, avgConfidence, avgExpectedValue float64) string {
	if aggressive > conservative {
		return "aggressive"
	}
	if conservative > aggressive {
		return "conservative"
	}
	if avgConfidence >= 75 && avgExpectedValue > 0 {
		return "aggressive"
	}
	if avgConfidence < 50 {
		return "conservative"
	}
	return "balanced"
}
