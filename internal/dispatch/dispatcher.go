package dispatch

import (
	"context"

	dispatchv1 "classification-dispatcher/api/v1"
)

// Dispatcher submits the job configured for a tier.
type Dispatcher struct {
	table     *Table
	submitter *Submitter
}

func NewDispatcher(table *Table, submitter *Submitter) *Dispatcher {
	return &Dispatcher{table: table, submitter: submitter}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tier dispatchv1.Tier) (string, error) {
	return d.submitter.Submit(ctx, d.table.Resolve(tier))
}
