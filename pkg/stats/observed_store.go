package stats

import (
	"context"
	"time"

	"parking-gate/ticket-kiosk/pkg/ticket"
)

type Store interface {
	CreateTicket(ctx context.Context, entry ticket.Entry) (*ticket.OpenTicket, error)
	CheckTicket(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error)
	PayTicket(ctx context.Context, payment ticket.PaymentRequest) (*ticket.Confirmation, error)
}

// ObservedStore records every call of the wrapped store.
type ObservedStore struct {
	store Store
	stats *Stats
}

func ProvideObservedStore(store Store, stats *Stats) *ObservedStore {
	return &ObservedStore{
		store: store,
		stats: stats,
	}
}

func (o *ObservedStore) CreateTicket(ctx context.Context, entry ticket.Entry) (*ticket.OpenTicket, error) {
	start := time.Now()
	issued, err := o.store.CreateTicket(ctx, entry)
	o.stats.Observe(OperationCreate, time.Since(start), err)
	return issued, err
}

func (o *ObservedStore) CheckTicket(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error) {
	start := time.Now()
	view, err := o.store.CheckTicket(ctx, artifact)
	o.stats.Observe(OperationCheck, time.Since(start), err)
	return view, err
}

func (o *ObservedStore) PayTicket(ctx context.Context, payment ticket.PaymentRequest) (*ticket.Confirmation, error) {
	start := time.Now()
	confirmation, err := o.store.PayTicket(ctx, payment)
	o.stats.Observe(OperationPay, time.Since(start), err)
	return confirmation, err
}
