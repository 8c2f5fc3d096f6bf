// Package reconcile resolves ambiguous transport failures. A read timeout or
// an incomplete stream does not mean the remote side failed: the metered
// generation may have completed server-side while the terminal frame was
// lost. Before anyone retries - and pays for a duplicate generation - the
// durable project record is consulted to see if the side effect already
// happened.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/sajtmaskin/server/internal/logger"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// the durable record could not prove the request succeeded; the caller may
// fall back to the synchronous transport with the same payload
var ErrUnresolved = errors.New("reconciliation unresolved")

// RecordSource fetches the durable, authoritative record for a project.
type RecordSource interface {
	ProjectRecord(ctx context.Context, projectID string) (*v0.ProjectRecord, error)
}

type Reconciler struct {
	source RecordSource
}

func NewReconciler(source RecordSource) *Reconciler {
	return &Reconciler{source: source}
}

// Resolve compares the project's durable conversation identifier against the
// one known before the request was issued. A changed identifier proves the
// remote side progressed: the outcome is synthesized from the durable record
// and treated as success. Otherwise ErrUnresolved is returned.
func (r *Reconciler) Resolve(ctx context.Context, projectID, priorChatID string) (*v0.Result, error) {
	record, err := r.source.ProjectRecord(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch durable project record: %w", err)
	}

	if record.ChatID == "" || record.ChatID == priorChatID {
		return nil, ErrUnresolved
	}

	logger.Info("ambiguous failure resolved as remote success",
		"project_id", projectID,
		"prior_chat_id", priorChatID,
		"chat_id", record.ChatID,
	)

	// the synthesized result carries no intent: the durable record only
	// exists because code-bearing work progressed, so it applies
	return &v0.Result{
		Success:    true,
		ChatID:     record.ChatID,
		DemoURL:    record.DemoURL,
		Code:       record.Code,
		Reconciled: true,
	}, nil
}
