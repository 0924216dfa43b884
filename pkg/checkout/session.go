package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/labstack/gommon/bytes"
	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

type State string

const (
	StateEmpty     State = "EMPTY"
	StateResolving State = "RESOLVING"
	StateResolved  State = "RESOLVED"
	StateNotFound  State = "NOT_FOUND"
	StateFailed    State = "LOOKUP_FAILED"
	StatePaying    State = "PAYING"
)

type Store interface {
	CheckTicket(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error)
	PayTicket(ctx context.Context, payment ticket.PaymentRequest) (*ticket.Confirmation, error)
}

type MethodSource interface {
	PaymentMethod() ticket.PaymentMethod
}

type Snapshot struct {
	State    State
	Resolved *ticket.ClosedTicketView
	LastErr  error
}

// Session is one exit-gate customer: upload a ticket image, look at the
// fee, pay. Paying ends the session.
type Session struct {
	lock sync.Mutex

	state    State
	resolved *ticket.ClosedTicketView
	lastErr  error

	// Incremented by every lookup, payment and reset. Responses carrying an
	// older token are dropped.
	token uint64

	observer func(from, to State)

	store   Store
	methods MethodSource
	logger  *zap.SugaredLogger
}

func ProvideSession(store Store, methods MethodSource, loggerFactory *infra.LoggerFactory) *Session {
	return &Session{
		state:   StateEmpty,
		store:   store,
		methods: methods,
		logger:  loggerFactory.Create("CheckOut").Sugar(),
	}
}

// Resolve looks up the ticket in artifact. Each call replaces whatever the
// previous lookup resolved, a lookup still in flight is superseded.
func (s *Session) Resolve(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error) {
	if artifact.Empty() {
		s.logger.Infof("lookup without artifact")
		return nil, ticket.ErrNoArtifactProvided
	}

	s.lock.Lock()
	if s.state == StatePaying {
		s.lock.Unlock()
		return nil, ticket.ErrPaymentInProgress
	}
	s.token++
	token := s.token
	s.resolved = nil
	s.lastErr = nil
	s.transition(StateResolving)
	s.lock.Unlock()

	s.logger.Infof("looking up artifact name[%v] size[%v]", artifact.Filename, bytes.Format(int64(len(artifact.Content))))
	view, err := s.store.CheckTicket(ctx, artifact)

	s.lock.Lock()
	defer s.lock.Unlock()

	if token != s.token {
		s.logger.Warnf("discarding response of superseded lookup name[%v]", artifact.Filename)
		return nil, ticket.ErrStaleResponse
	}

	if errors.Is(err, ticket.ErrNotFound) || (err == nil && view == nil) {
		s.lastErr = ticket.ErrNotFound
		s.transition(StateNotFound)
		s.logger.Infof("no ticket for artifact name[%v]", artifact.Filename)
		return nil, ticket.ErrNotFound
	}

	if err != nil {
		s.lastErr = fmt.Errorf("%w: %w", ticket.ErrLookupFailed, err)
		s.transition(StateFailed)
		s.logger.Warnf("lookup failed name[%v] %v", artifact.Filename, err)
		return nil, s.lastErr
	}

	s.resolved = view
	s.transition(StateResolved)
	s.logger.Infof("resolved ticket slip[%v] fee[%v] duration[%v]", view.SlipNumber, view.TotalFee, view.ElapsedDuration)

	result := *view
	return &result, nil
}

// ConfirmPayment pays the resolved ticket. On success the session starts
// over, so the same ticket can not be paid twice. On failure the resolved
// ticket is kept for a retry.
func (s *Session) ConfirmPayment(ctx context.Context) (*ticket.Confirmation, error) {
	s.lock.Lock()
	if s.state == StatePaying {
		s.lock.Unlock()
		return nil, ticket.ErrPaymentInProgress
	}
	if s.state != StateResolved || s.resolved == nil {
		state := s.state
		s.lock.Unlock()
		s.logger.Infof("payment without resolved ticket state[%v]", state)
		return nil, ticket.ErrNoTicketResolved
	}

	payment := ticket.NewPaymentRequest(*s.resolved, s.methods.PaymentMethod())
	s.token++
	token := s.token
	s.lastErr = nil
	s.transition(StatePaying)
	s.lock.Unlock()

	s.logger.Infof("paying slip[%v] fee[%v] method[%v]", payment.SlipNumber, payment.TotalFee, payment.PaymentMethod)
	confirmation, err := s.store.PayTicket(ctx, payment)

	s.lock.Lock()
	defer s.lock.Unlock()

	if token != s.token {
		s.logger.Warnf("discarding payment response of abandoned session slip[%v]", payment.SlipNumber)
		return nil, ticket.ErrStaleResponse
	}

	if err != nil {
		s.lastErr = err
		s.transition(StateResolved)
		s.logger.Warnf("payment failed slip[%v] %v", payment.SlipNumber, err)
		return nil, fmt.Errorf("pay slip[%v]: %w", payment.SlipNumber, err)
	}

	s.resolved = nil
	s.transition(StateEmpty)
	s.logger.Infof("paid slip[%v]", payment.SlipNumber)
	return confirmation, nil
}

// Resolved returns the ticket currently shown at the exit gate.
func (s *Session) Resolved() (ticket.ClosedTicketView, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.resolved == nil {
		return ticket.ClosedTicketView{}, false
	}
	return *s.resolved, true
}

func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := Snapshot{
		State:   s.state,
		LastErr: s.lastErr,
	}
	if s.resolved != nil {
		resolved := *s.resolved
		snapshot.Resolved = &resolved
	}
	return snapshot
}

// Refuse records an upload that was supplied but could not be looked up.
// Like a failed lookup it supersedes the previously resolved ticket, so the
// old fee can not be paid by mistake.
func (s *Session) Refuse(err error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state == StatePaying {
		return ticket.ErrPaymentInProgress
	}
	s.token++
	s.resolved = nil
	s.lastErr = err
	s.transition(StateFailed)
	s.logger.Infof("upload refused %v", err)
	return err
}

// Reset abandons the session, including any request in flight.
func (s *Session) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.token++
	s.resolved = nil
	s.lastErr = nil
	s.transition(StateEmpty)
	s.logger.Infof("session reset")
}

func (s *Session) SetObserver(fn func(from, to State)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.observer = fn
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	s.logger.Debugf("state[%v] -> [%v]", from, to)
	if s.observer != nil {
		s.observer(from, to)
	}
}
