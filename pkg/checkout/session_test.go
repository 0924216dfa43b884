package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

var resolvedView = ticket.ClosedTicketView{
	ID:              "1",
	VehicleType:     ticket.Car,
	PlateNumber:     "B 1234 XYZ",
	SlipNumber:      "A001",
	EntryTime:       ticket.ParseTimestamp("2024-01-01T08:00:00Z"),
	ExitTime:        ticket.ParseTimestamp("2024-01-01T10:00:00Z"),
	TotalFee:        "5000",
	ElapsedDuration: "0 days 2 hours 0 minutes",
}

type lookupResult struct {
	view *ticket.ClosedTicketView
	err  error
}

type storeMock struct {
	lock sync.Mutex

	lookups  []ticket.Artifact
	payments []ticket.PaymentRequest

	lookupResults []lookupResult
	payErrs       []error

	// When set, CheckTicket signals lookupStarted and waits for
	// lookupRelease.
	lookupStarted chan struct{}
	lookupRelease chan struct{}
}

func (m *storeMock) CheckTicket(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error) {
	m.lock.Lock()
	m.lookups = append(m.lookups, artifact)
	result := lookupResult{view: &resolvedView}
	if len(m.lookupResults) > 0 {
		result = m.lookupResults[0]
		m.lookupResults = m.lookupResults[1:]
	}
	started, release := m.lookupStarted, m.lookupRelease
	m.lock.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	if result.view != nil {
		view := *result.view
		return &view, result.err
	}
	return nil, result.err
}

func (m *storeMock) PayTicket(ctx context.Context, payment ticket.PaymentRequest) (*ticket.Confirmation, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.payments = append(m.payments, payment)
	if len(m.payErrs) > 0 {
		err := m.payErrs[0]
		m.payErrs = m.payErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ticket.Confirmation{
		SlipNumber:    payment.SlipNumber,
		ExitTime:      payment.ExitTime,
		TotalFee:      payment.TotalFee,
		PaymentMethod: payment.PaymentMethod,
	}, nil
}

func (m *storeMock) lookupCalls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.lookups)
}

func (m *storeMock) payCalls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.payments)
}

type fixedMethod ticket.PaymentMethod

func (m fixedMethod) PaymentMethod() ticket.PaymentMethod {
	return ticket.PaymentMethod(m)
}

func newSession(t *testing.T, store Store) *Session {
	t.Helper()
	return ProvideSession(store, fixedMethod(ticket.Cash), infra.NewLoggerFactory(zaptest.NewLogger(t)))
}

var image = ticket.Artifact{Filename: "slip.jpg", Content: []byte("jpeg")}

func TestSession_Resolve_without_artifact(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), ticket.Artifact{Filename: "empty.jpg"})
	require.ErrorIs(t, err, ticket.ErrNoArtifactProvided)
	assert.NotErrorIs(t, err, ticket.ErrNotFound)

	assert.Equal(t, 0, store.lookupCalls())
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_Resolve_without_artifact_keeps_resolved_ticket(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), ticket.Artifact{})
	require.ErrorIs(t, err, ticket.ErrNoArtifactProvided)

	_, ok := s.Resolved()
	assert.True(t, ok)
	assert.Equal(t, 1, store.lookupCalls())
}

func TestSession_Resolve(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	view, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, resolvedView, *view)

	resolved, ok := s.Resolved()
	require.True(t, ok)
	assert.Equal(t, resolvedView, resolved)
	assert.Equal(t, StateResolved, s.State())
	assert.Equal(t, []ticket.Artifact{image}, store.lookups)
}

func TestSession_Resolve_not_found_clears_resolved_ticket(t *testing.T) {
	store := &storeMock{
		lookupResults: []lookupResult{
			{view: &resolvedView},
			{err: ticket.ErrNotFound},
		},
	}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	view, err := s.Resolve(context.Background(), image)
	require.ErrorIs(t, err, ticket.ErrNotFound)
	assert.Nil(t, view)

	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateNotFound, s.State())

	_, err = s.ConfirmPayment(context.Background())
	require.ErrorIs(t, err, ticket.ErrNoTicketResolved)
	assert.Equal(t, 0, store.payCalls())
}

func TestSession_Resolve_failure_clears_resolved_ticket(t *testing.T) {
	cause := &ticket.StoreRejectedError{Status: 500, Reason: "recognition down"}
	store := &storeMock{
		lookupResults: []lookupResult{
			{view: &resolvedView},
			{err: cause},
		},
	}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), image)
	require.ErrorIs(t, err, ticket.ErrLookupFailed)

	var rejected *ticket.StoreRejectedError
	require.True(t, errors.As(err, &rejected))

	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Snapshot().LastErr, ticket.ErrLookupFailed)
}

func TestSession_Refuse_clears_resolved_ticket(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	refused := errors.New("upload too large")
	assert.Equal(t, refused, s.Refuse(refused))

	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, refused, s.Snapshot().LastErr)

	_, err = s.ConfirmPayment(context.Background())
	require.ErrorIs(t, err, ticket.ErrNoTicketResolved)
	assert.Equal(t, 0, store.payCalls())
	assert.Equal(t, 1, store.lookupCalls())
}

func TestSession_Refuse_drops_lookup_in_flight(t *testing.T) {
	store := &storeMock{
		lookupStarted: make(chan struct{}),
		lookupRelease: make(chan struct{}),
	}
	s := newSession(t, store)

	done := make(chan error, 1)
	go func() {
		_, err := s.Resolve(context.Background(), image)
		done <- err
	}()
	<-store.lookupStarted

	s.Refuse(ticket.ErrArtifactTooLarge)
	close(store.lookupRelease)

	require.ErrorIs(t, <-done, ticket.ErrStaleResponse)
	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateFailed, s.State())
}

func TestSession_Resolve_network_failure(t *testing.T) {
	store := &storeMock{
		lookupResults: []lookupResult{{err: ticket.ErrNetworkFailure}},
	}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.ErrorIs(t, err, ticket.ErrLookupFailed)
	require.ErrorIs(t, err, ticket.ErrNetworkFailure)
}

func TestSession_new_lookup_supersedes_previous(t *testing.T) {
	other := resolvedView
	other.SlipNumber = "A002"
	other.TotalFee = "9000"

	store := &storeMock{
		lookupResults: []lookupResult{
			{view: &resolvedView},
			{view: &other},
		},
	}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)
	_, err = s.Resolve(context.Background(), ticket.Artifact{Filename: "other.jpg", Content: []byte("other")})
	require.NoError(t, err)

	resolved, ok := s.Resolved()
	require.True(t, ok)
	assert.Equal(t, other, resolved)

	_, err = s.ConfirmPayment(context.Background())
	require.NoError(t, err)
	require.Len(t, store.payments, 1)
	assert.Equal(t, "A002", store.payments[0].SlipNumber)
	assert.Equal(t, json.Number("9000"), store.payments[0].TotalFee)
}

func TestSession_late_lookup_response_is_discarded(t *testing.T) {
	store := &storeMock{
		lookupStarted: make(chan struct{}),
		lookupRelease: make(chan struct{}),
	}
	s := newSession(t, store)

	done := make(chan error, 1)
	go func() {
		_, err := s.Resolve(context.Background(), image)
		done <- err
	}()
	<-store.lookupStarted

	s.Reset()
	close(store.lookupRelease)

	require.ErrorIs(t, <-done, ticket.ErrStaleResponse)
	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_ConfirmPayment_without_resolved_ticket(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.ConfirmPayment(context.Background())
	require.ErrorIs(t, err, ticket.ErrNoTicketResolved)
	assert.Equal(t, 0, store.payCalls())
}

func TestSession_ConfirmPayment_payload(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	confirmation, err := s.ConfirmPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A001", confirmation.SlipNumber)

	require.Len(t, store.payments, 1)
	payload, err := json.Marshal(store.payments[0])
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"nomorTiket":"A001","totalHarga":5000,"tanggalKeluar":"2024-01-01T10:00:00Z","metodePembayaran":"CASH"}`,
		string(payload),
	)
}

func TestSession_ConfirmPayment_twice_reaches_store_once(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)

	_, err = s.ConfirmPayment(context.Background())
	require.NoError(t, err)

	_, ok := s.Resolved()
	assert.False(t, ok)
	assert.Equal(t, StateEmpty, s.State())

	_, err = s.ConfirmPayment(context.Background())
	require.ErrorIs(t, err, ticket.ErrNoTicketResolved)
	assert.Equal(t, 1, store.payCalls())
}

func TestSession_ConfirmPayment_failure_keeps_ticket_for_retry(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{
			name: "store rejected",
			err:  &ticket.StoreRejectedError{Status: 422, Reason: "fee changed"},
		},
		{
			name: "network failure",
			err:  ticket.ErrNetworkFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &storeMock{payErrs: []error{tc.err}}
			s := newSession(t, store)

			_, err := s.Resolve(context.Background(), image)
			require.NoError(t, err)

			_, err = s.ConfirmPayment(context.Background())
			require.ErrorIs(t, err, tc.err)

			resolved, ok := s.Resolved()
			require.True(t, ok)
			assert.Equal(t, resolvedView, resolved)
			assert.Equal(t, StateResolved, s.State())

			_, err = s.ConfirmPayment(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, store.payCalls())
			assert.Equal(t, 1, store.lookupCalls())
		})
	}
}

func TestSession_uses_configured_payment_method(t *testing.T) {
	store := &storeMock{}
	s := ProvideSession(store, fixedMethod("QRIS"), infra.NewLoggerFactory(zaptest.NewLogger(t)))

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)
	_, err = s.ConfirmPayment(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ticket.PaymentMethod("QRIS"), store.payments[0].PaymentMethod)
}

func TestSession_observer_sees_transitions(t *testing.T) {
	store := &storeMock{}
	s := newSession(t, store)

	var transitions []State
	s.SetObserver(func(from, to State) {
		transitions = append(transitions, to)
	})

	_, err := s.Resolve(context.Background(), image)
	require.NoError(t, err)
	_, err = s.ConfirmPayment(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{StateResolving, StateResolved, StatePaying, StateEmpty}, transitions)
}
