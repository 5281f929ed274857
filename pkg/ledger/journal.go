package ledger

import (
	"context"

	"go.uber.org/zap"
)

// journal records compensations for effects already applied by an operation
// so they can be reverted if a later step fails.
type journal struct {
	op    string
	undos []func(ctx context.Context) error
}

func newJournal(op string) *journal {
	return &journal{op: op}
}

func (j *journal) record(undo func(ctx context.Context) error) {
	j.undos = append(j.undos, undo)
}

// rollback runs the compensations in reverse order. It keeps going on error;
// a failed compensation leaves the collaborators inconsistent and is logged.
func (j *journal) rollback(ctx context.Context) {
	for i := len(j.undos) - 1; i >= 0; i-- {
		if err := j.undos[i](context.WithoutCancel(ctx)); err != nil {
			zap.L().With(zap.String("op", j.op), zap.Error(err)).Error("Marketplace: compensation failed")
		}
	}
	j.undos = nil
}
