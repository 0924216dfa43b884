// Package storetest runs an in-process ticket store for tests.
package storetest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/labstack/echo/v4"

	"parking-gate/ticket-kiosk/pkg/ticket"
)

type Route string

const (
	RouteCreate Route = "POST /tickets"
	RouteCheck  Route = "POST /tickets/check"
	RoutePay    Route = "PATCH /tickets"
)

type Upload struct {
	Filename string
	Content  []byte
}

type response struct {
	status int
	body   interface{}
	raw    string
}

// Store records every request it receives and answers with the configured
// response, or a successful default.
type Store struct {
	lock sync.Mutex

	creates  []ticket.Entry
	uploads  []Upload
	payments []ticket.PaymentRequest
	headers  []http.Header

	responses map[Route]response
	drops     map[Route]int
	attempts  map[Route]int
	server    *httptest.Server
}

var (
	DefaultView = ticket.ClosedTicketView{
		ID:              "1",
		VehicleType:     ticket.Car,
		PlateNumber:     "B 1234 XYZ",
		SlipNumber:      "A001",
		EntryTime:       ticket.ParseTimestamp("2024-01-01T08:00:00Z"),
		ExitTime:        ticket.ParseTimestamp("2024-01-01T10:00:00Z"),
		TotalFee:        "5000",
		ElapsedDuration: "0 days 2 hours 0 minutes",
	}
)

func New() *Store {
	s := &Store{
		responses: map[Route]response{},
		drops:     map[Route]int{},
		attempts:  map[Route]int{},
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/api/tickets", s.droppable(RouteCreate, s.handleCreate))
	e.POST("/api/tickets/check", s.droppable(RouteCheck, s.handleCheck))
	e.PATCH("/api/tickets", s.droppable(RoutePay, s.handlePay))

	s.server = httptest.NewServer(e)
	return s
}

// URL is the base url to configure the store client with.
func (s *Store) URL() string {
	return s.server.URL + "/api"
}

func (s *Store) Close() {
	s.server.Close()
}

// Respond makes route answer with status and body as JSON.
func (s *Store) Respond(route Route, status int, body interface{}) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.responses[route] = response{status: status, body: body}
}

// RespondRaw makes route answer with a plain text body.
func (s *Store) RespondRaw(route Route, status int, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.responses[route] = response{status: status, raw: body}
}

// Drop makes the next n requests to route lose their connection after the
// body was read, before any response is written.
func (s *Store) Drop(route Route, n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.drops[route] = n
}

// Attempts counts every request that reached route, dropped ones included.
func (s *Store) Attempts(route Route) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.attempts[route]
}

// Calls counts the requests to route that were answered.
func (s *Store) Calls(route Route) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	switch route {
	case RouteCreate:
		return len(s.creates)
	case RouteCheck:
		return len(s.uploads)
	case RoutePay:
		return len(s.payments)
	}
	return 0
}

func (s *Store) Creates() []ticket.Entry {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]ticket.Entry(nil), s.creates...)
}

func (s *Store) Uploads() []Upload {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Store) Payments() []ticket.PaymentRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]ticket.PaymentRequest(nil), s.payments...)
}

// Headers of every request in arrival order.
func (s *Store) Headers() []http.Header {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]http.Header(nil), s.headers...)
}

func (s *Store) droppable(route Route, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.lock.Lock()
		s.attempts[route]++
		drop := s.drops[route] > 0
		if drop {
			s.drops[route]--
		}
		s.lock.Unlock()

		if !drop {
			return next(c)
		}

		if _, err := io.Copy(io.Discard, c.Request().Body); err != nil {
			return err
		}
		conn, _, err := c.Response().Hijack()
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func (s *Store) reply(c echo.Context, route Route, fallback func() error) error {
	s.lock.Lock()
	resp, ok := s.responses[route]
	s.lock.Unlock()

	if !ok {
		return fallback()
	}
	if resp.raw != "" {
		return c.String(resp.status, resp.raw)
	}
	if resp.body == nil {
		return c.NoContent(resp.status)
	}
	return c.JSON(resp.status, resp.body)
}

func (s *Store) handleCreate(c echo.Context) error {
	var entry ticket.Entry
	if err := c.Bind(&entry); err != nil {
		return err
	}

	s.lock.Lock()
	s.creates = append(s.creates, entry)
	s.headers = append(s.headers, c.Request().Header.Clone())
	slip := len(s.creates)
	s.lock.Unlock()

	return s.reply(c, RouteCreate, func() error {
		return c.JSON(http.StatusCreated, echo.Map{
			"data": ticket.OpenTicket{
				ID:          ticket.ID("10"),
				VehicleType: entry.VehicleType,
				PlateNumber: entry.PlateNumber,
				EntryTime:   ticket.ParseTimestamp("2024-01-01T08:00:00Z"),
				SlipNumber:  slipNumber(slip),
			},
		})
	})
}

func (s *Store) handleCheck(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "image is required"})
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	s.lock.Lock()
	s.uploads = append(s.uploads, Upload{Filename: file.Filename, Content: content})
	s.headers = append(s.headers, c.Request().Header.Clone())
	s.lock.Unlock()

	return s.reply(c, RouteCheck, func() error {
		return c.JSON(http.StatusOK, echo.Map{"data": DefaultView})
	})
}

func (s *Store) handlePay(c echo.Context) error {
	var payment ticket.PaymentRequest
	if err := c.Bind(&payment); err != nil {
		return err
	}

	s.lock.Lock()
	s.payments = append(s.payments, payment)
	s.headers = append(s.headers, c.Request().Header.Clone())
	s.lock.Unlock()

	return s.reply(c, RoutePay, func() error {
		return c.JSON(http.StatusOK, echo.Map{
			"data": ticket.Confirmation{
				ID:            DefaultView.ID,
				SlipNumber:    payment.SlipNumber,
				PlateNumber:   DefaultView.PlateNumber,
				ExitTime:      payment.ExitTime,
				TotalFee:      payment.TotalFee,
				PaymentMethod: payment.PaymentMethod,
			},
		})
	})
}

func slipNumber(n int) string {
	return fmt.Sprintf("A%03d", n)
}
