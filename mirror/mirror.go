// Package mirror implements the best-effort mirroring used by the
// transparency ledger (external audit trail) and the memory store (external
// persistence). A mirror attempt is a two-phase operation: try the remote
// sink, always also write the local sink, and report which path succeeded
// instead of silently swallowing failures.
package mirror

import (
	"context"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
)

// Sink receives keyed records. Implementations must be safe for concurrent
// use. A failed Put must not leave partial state the caller has to clean up.
type Sink interface {
	// Name identifies the sink in logs and results.
	Name() string
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value any) error
}

// Result records which paths of a mirror attempt succeeded. RemoteOK is false
// both when the remote sink failed and when no remote sink is configured;
// RemoteErr distinguishes the two.
type Result struct {
	Sink      string `json:"sink"`
	RemoteOK  bool   `json:"remote_ok"`
	LocalOK   bool   `json:"local_ok"`
	RemoteErr error  `json:"-"`
	LocalErr  error  `json:"-"`
}

// Tee is the attempt-remote-always-write-local recorder. The remote attempt
// runs under the injected failure policy (bounded retries for transient
// errors); the local write happens regardless of the remote outcome. Record
// never fails the caller.
type Tee struct {
	remote Sink
	local  Sink
	policy *core.FailurePolicy
	logger logging.Logger
}

// NewTee builds a recorder. remote may be nil (local-only operation); local
// must not be nil. A nil policy disables retries on the remote path.
func NewTee(remote, local Sink, policy *core.FailurePolicy, logger logging.Logger) *Tee {
	if policy == nil {
		policy = core.NewFailurePolicy(1, 0, 0, logger)
	}
	return &Tee{remote: remote, local: local, policy: policy, logger: logging.OrNoOp(logger)}
}

// Record mirrors value under key to both paths and reports the outcome.
func (t *Tee) Record(ctx context.Context, key string, value any) Result {
	res := Result{Sink: t.local.Name()}
	if t.remote != nil {
		res.Sink = t.remote.Name()
		res.RemoteErr = t.policy.Execute(ctx, "mirror."+t.remote.Name(), func() error {
			return t.remote.Put(ctx, key, value)
		})
		res.RemoteOK = res.RemoteErr == nil
	}
	res.LocalErr = t.local.Put(ctx, key, value)
	res.LocalOK = res.LocalErr == nil
	t.logOutcome(key, res)
	return res
}

// logOutcome prefers the structured mirror helper when a MarketLogger is
// wired, falling back to the generic interface.
func (t *Tee) logOutcome(key string, res Result) {
	if ml, ok := t.logger.(*logging.MarketLogger); ok {
		err := res.RemoteErr
		if res.LocalErr != nil {
			err = res.LocalErr
		}
		ml.LogMirror(res.Sink, res.RemoteOK, res.LocalOK, err)
		return
	}
	if res.RemoteErr != nil {
		t.logger.Warn("remote mirror failed, falling back to local", "sink", res.Sink, "key", key, "error", res.RemoteErr)
	}
	if res.LocalErr != nil {
		t.logger.Error("local mirror write failed", "sink", t.local.Name(), "key", key, "error", res.LocalErr)
	}
}
