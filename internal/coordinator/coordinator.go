// Package coordinator turns a user's instruction into exactly one
// well-ordered call to the remote code-generation service. It gates entry
// through the persisted admission lock, enriches submissions with pending
// clarify context, resolves ambiguous transport failures against the durable
// project record before ever retrying, and routes the result's intent to
// decide whether artifacts may be applied.
package coordinator

import (
	"context"
	"errors"
	"time"

	"codeberg.org/sajtmaskin/server/internal/clarify"
	"codeberg.org/sajtmaskin/server/internal/intent"
	"codeberg.org/sajtmaskin/server/internal/lock"
	"codeberg.org/sajtmaskin/server/internal/logger"
	"codeberg.org/sajtmaskin/server/internal/reconcile"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// this instance already completed an identical request in its lifetime
var ErrDuplicate = errors.New("duplicate submission, request already completed by this instance")

// Transport issues generation calls. Implemented by v0.Client.
type Transport interface {
	Generate(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error)
	GenerateSync(ctx context.Context, req v0.GenerateRequest) (*v0.Result, error)
}

// Applier persists an applied result to the product's own durable store.
// Optional; a nil applier skips persistence.
type Applier interface {
	ApplyResult(ctx context.Context, projectID string, result *v0.Result) error
}

// Request is one user-initiated generation submission.
type Request struct {
	ProjectID  string
	Category   string
	Prompt     string
	TemplateID string
	Quality    string

	// last known conversation identifier before this request; the
	// reconciliation baseline
	ChatID string

	// current visible code state, if refining an existing site
	Code  string
	Files []v0.File
}

type Coordinator struct {
	transport  Transport
	admission  *lock.Controller
	clarify    *clarify.Store
	reconciler *reconcile.Reconciler
	applier    Applier
	guard      *instanceGuard
}

func New(transport Transport, admission *lock.Controller, clarifyStore *clarify.Store, reconciler *reconcile.Reconciler, applier Applier) *Coordinator {
	return &Coordinator{
		transport:  transport,
		admission:  admission,
		clarify:    clarifyStore,
		reconciler: reconciler,
		applier:    applier,
		guard:      newInstanceGuard(admission.Cooldown()),
	}
}

// Submit runs one generation request end to end.
//
// Admission refusals (lock.ErrAlreadyRunning, lock.ErrCooldown, ErrDuplicate)
// are non-fatal: the caller suppresses the submission and shows nothing.
// Ambiguous transport failures never escape directly - they pass through
// reconciliation, then the synchronous fallback; only a fallback failure
// becomes user-visible.
func (c *Coordinator) Submit(ctx context.Context, req Request, cb v0.StreamCallbacks) (*v0.Result, error) {
	key := RequestKey(req.Category, req.Prompt, req.TemplateID)

	if c.guard.completed(req.ProjectID, key) {
		return nil, ErrDuplicate
	}

	if err := c.admission.TryAdmit(ctx, req.ProjectID, key); err != nil {
		return nil, err
	}

	// release must run exactly once on every path out of the admitted
	// region, including cancellation of the caller's context
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		c.admission.Release(releaseCtx, req.ProjectID)
	}()

	payload, err := c.buildPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := c.dispatch(ctx, req, payload, cb)
	if err != nil {
		return nil, err
	}

	result.Applied = intent.ShouldApply(result.Intent)

	if err := c.recordOutcome(ctx, req, result); err != nil {
		// the generation itself succeeded; bookkeeping failures are logged,
		// not surfaced as a failed generation
		logger.ErrorErr(err, "failed to record generation outcome",
			"project_id", req.ProjectID,
		)
	}

	c.guard.markCompleted(req.ProjectID, key)

	return result, nil
}

// builds the outgoing payload, folding in any pending clarify context so the
// remote service keeps the thread of a multi-turn disambiguation
func (c *Coordinator) buildPayload(ctx context.Context, req Request) (v0.GenerateRequest, error) {
	payload := v0.GenerateRequest{
		Prompt:  req.Prompt,
		Quality: req.Quality,
		ChatID:  req.ChatID,
		Code:    req.Code,
		Files:   req.Files,
	}

	pending, err := c.clarify.Get(ctx, req.ProjectID)
	if err != nil {
		return v0.GenerateRequest{}, err
	}

	if pending != nil {
		payload.Clarify = &v0.ClarifyPayload{
			OriginalPrompt:  pending.OriginalPrompt,
			ClarifyQuestion: pending.ClarifyQuestion,
			UserResponse:    req.Prompt,
		}
	}

	return payload, nil
}

// attempts the streaming path; on an ambiguous failure reconciles against
// the durable record, and only falls back to the synchronous endpoint when
// reconciliation cannot prove the work already happened
func (c *Coordinator) dispatch(ctx context.Context, req Request, payload v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
	result, err := c.transport.Generate(ctx, payload, cb)
	if err == nil {
		return result, nil
	}

	if !v0.IsAmbiguous(err) {
		return nil, err
	}

	logger.Warn("ambiguous transport failure, reconciling",
		"project_id", req.ProjectID,
		"kind", string(v0.Kind(err)),
	)

	resolved, rerr := c.reconciler.Resolve(ctx, req.ProjectID, req.ChatID)
	if rerr == nil {
		return resolved, nil
	}

	if !errors.Is(rerr, reconcile.ErrUnresolved) {
		// the record endpoint itself failed; that proves nothing either
		// way, so fall back the same as unresolved
		logger.ErrorErr(rerr, "reconciliation query failed, falling back",
			"project_id", req.ProjectID,
		)
	}

	// same key, same payload - the admission lock is still held, so the
	// fallback is not a second logical request
	return c.transport.GenerateSync(ctx, payload)
}

// updates clarify state and persists applied artifacts
func (c *Coordinator) recordOutcome(ctx context.Context, req Request, result *v0.Result) error {
	if intent.IsClarify(result.Intent) {
		return c.clarify.Set(ctx, req.ProjectID, clarify.Context{
			OriginalPrompt:  req.Prompt,
			ClarifyQuestion: result.ClarifyQuestion,
		})
	}

	if err := c.clarify.Clear(ctx, req.ProjectID); err != nil {
		return err
	}

	if result.Applied && c.applier != nil {
		return c.applier.ApplyResult(ctx, req.ProjectID, result)
	}

	return nil
}
