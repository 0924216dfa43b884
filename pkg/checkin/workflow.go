package checkin

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

type State string

const (
	StateIdle       State = "IDLE"
	StateSubmitting State = "SUBMITTING"
	StateIssued     State = "ISSUED"
	StateFailed     State = "FAILED"
)

type Creator interface {
	CreateTicket(ctx context.Context, entry ticket.Entry) (*ticket.OpenTicket, error)
}

// Snapshot is a copy of the workflow state for the screens.
type Snapshot struct {
	State   State
	Ticket  *ticket.OpenTicket
	LastErr error
}

// Workflow issues at most one ticket per session. A session ends with
// Reset, which is the only way to print another ticket.
type Workflow struct {
	lock sync.Mutex

	state  State
	issued *ticket.OpenTicket

	// Error of the last failed submission, cleared by the next one.
	lastErr error

	// Incremented by every submission and reset. A response whose token
	// no longer matches belongs to an abandoned request.
	token uint64

	// Called on every state change while the lock is held, must not call
	// back into the workflow.
	observer func(from, to State)

	creator Creator
	logger  *zap.SugaredLogger
}

func ProvideWorkflow(creator Creator, loggerFactory *infra.LoggerFactory) *Workflow {
	return &Workflow{
		state:   StateIdle,
		creator: creator,
		logger:  loggerFactory.Create("CheckIn").Sugar(),
	}
}

// SubmitForm validates raw form input and submits it.
func (w *Workflow) SubmitForm(ctx context.Context, plateNumber string, vehicleType string) (*ticket.OpenTicket, error) {
	entry, err := ticket.ValidateEntry(plateNumber, vehicleType)
	if err != nil {
		w.logger.Infof("rejected form plate[%v] vehicle[%v] %v", plateNumber, vehicleType, err)
		return nil, err
	}
	return w.Submit(ctx, entry)
}

// Submit asks the store for a ticket. Only one submission can be in
// flight and none is accepted once a ticket was issued.
func (w *Workflow) Submit(ctx context.Context, entry ticket.Entry) (*ticket.OpenTicket, error) {
	w.lock.Lock()
	switch w.state {
	case StateSubmitting:
		w.lock.Unlock()
		return nil, ticket.ErrSubmitInProgress
	case StateIssued:
		w.lock.Unlock()
		return nil, ticket.ErrAlreadyIssued
	}
	w.transition(StateSubmitting)
	w.lastErr = nil
	w.token++
	token := w.token
	w.lock.Unlock()

	w.logger.Infof("submitting plate[%v] vehicle[%v]", entry.PlateNumber, entry.VehicleType)
	issued, err := w.creator.CreateTicket(ctx, entry)

	w.lock.Lock()
	defer w.lock.Unlock()

	if token != w.token {
		w.logger.Warnf("discarding response of abandoned submission plate[%v]", entry.PlateNumber)
		return nil, ticket.ErrStaleResponse
	}

	if err != nil {
		w.lastErr = err
		w.logger.Warnf("submission failed plate[%v] %v", entry.PlateNumber, err)
		w.transition(StateFailed)
		w.transition(StateIdle)
		return nil, fmt.Errorf("check-in plate[%v]: %w", entry.PlateNumber, err)
	}

	w.issued = issued
	w.transition(StateIssued)
	w.logger.Infof("issued ticket slip[%v] plate[%v]", issued.SlipNumber, issued.PlateNumber)

	result := *issued
	return &result, nil
}

// Issued returns the ticket of this session for printing. Printing can be
// repeated and never submits again.
func (w *Workflow) Issued() (ticket.OpenTicket, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.state != StateIssued || w.issued == nil {
		return ticket.OpenTicket{}, false
	}
	return *w.issued, true
}

func (w *Workflow) State() State {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.state
}

func (w *Workflow) Snapshot() Snapshot {
	w.lock.Lock()
	defer w.lock.Unlock()

	snapshot := Snapshot{
		State:   w.state,
		LastErr: w.lastErr,
	}
	if w.issued != nil {
		issued := *w.issued
		snapshot.Ticket = &issued
	}
	return snapshot
}

// Reset starts a new session. A submission still in flight is abandoned
// and its response dropped.
func (w *Workflow) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.token++
	w.issued = nil
	w.lastErr = nil
	w.transition(StateIdle)
	w.logger.Infof("session reset")
}

// SetObserver registers fn to be told about every state change.
func (w *Workflow) SetObserver(fn func(from, to State)) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.observer = fn
}

func (w *Workflow) transition(to State) {
	from := w.state
	w.state = to
	w.logger.Debugf("state[%v] -> [%v]", from, to)
	if w.observer != nil {
		w.observer(from, to)
	}
}
