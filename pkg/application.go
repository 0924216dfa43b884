package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parking-gate/ticket-kiosk/pkg/checkin"
	"parking-gate/ticket-kiosk/pkg/checkout"
	"parking-gate/ticket-kiosk/pkg/client"
	"parking-gate/ticket-kiosk/pkg/clock"
	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/msg"
	"parking-gate/ticket-kiosk/pkg/present"
	"parking-gate/ticket-kiosk/pkg/stats"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

// Multipart field of the ticket image uploaded at the exit gate.
const artifactField = "image"

type checkInForm struct {
	PlateNumber string `json:"nomorPlat" form:"nomorPlat"`
	VehicleType string `json:"jenisKendaraan" form:"jenisKendaraan"`
}

type checkInResponse struct {
	msg.CheckInServerEvent
	Data *ticket.OpenTicket `json:"data,omitempty"`
}

type checkOutResponse struct {
	msg.CheckOutServerEvent
	Data         *ticket.ClosedTicketView `json:"data,omitempty"`
	Confirmation *ticket.Confirmation     `json:"confirmation,omitempty"`
}

type healthResponse struct {
	Status              string `json:"status"`
	GateName            string `json:"gateName"`
	AvgStoreLatencyMsec int64  `json:"avgStoreLatencyMsec"`
}

type Application struct {
	config      *config.Config
	kioskConfig *config.KioskConfig
	hub         *client.Hub
	clock       *clock.Clock
	checkIn     *checkin.Workflow
	checkOut    *checkout.Session
	stats       *stats.Stats
	locale      present.Locale
	wsUpgrader  *websocket.Upgrader

	// Notify worker that a workflow changed state. Holds at most one
	// pending notification, the worker publishes the latest snapshot.
	checkInDirty  chan struct{}
	checkOutDirty chan struct{}

	logger *zap.SugaredLogger
}

func ProvideApplication(
	config *config.Config,
	kioskConfig *config.KioskConfig,
	hub *client.Hub,
	clock *clock.Clock,
	checkIn *checkin.Workflow,
	checkOut *checkout.Session,
	stats *stats.Stats,
	locale present.Locale,
	loggerFactory *infra.LoggerFactory,
) *Application {
	a := &Application{
		config:        config,
		kioskConfig:   kioskConfig,
		hub:           hub,
		clock:         clock,
		checkIn:       checkIn,
		checkOut:      checkOut,
		stats:         stats,
		locale:        locale,
		wsUpgrader:    &websocket.Upgrader{},
		checkInDirty:  make(chan struct{}, 1),
		checkOutDirty: make(chan struct{}, 1),
		logger:        loggerFactory.Create("Application").Sugar(),
	}

	// Observers run under the workflow lock, they only flag the change.
	checkIn.SetObserver(func(from, to checkin.State) {
		markDirty(a.checkInDirty)
	})
	checkOut.SetObserver(func(from, to checkout.State) {
		markDirty(a.checkOutDirty)
	})
	return a
}

func markDirty(dirty chan struct{}) {
	select {
	case dirty <- struct{}{}:
	default:
	}
}

func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.kioskConfig.Run(ctx)
	})
	g.Go(func() error {
		return a.hub.Run(ctx)
	})
	g.Go(func() error {
		return a.clock.Run(ctx)
	})
	g.Go(func() error {
		return a.notifyWorker(ctx)
	})
	return g.Wait()
}

func (a *Application) notifyWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.checkInDirty:
			a.hub.Publish(msg.CheckInCode, a.checkInEvent())
		case <-a.checkOutDirty:
			a.hub.Publish(msg.CheckOutCode, a.checkOutEvent())
		}
	}
}

func (a *Application) checkInEvent() *msg.CheckInServerEvent {
	response := a.checkInResponse()
	return &response.CheckInServerEvent
}

func (a *Application) checkOutEvent() *msg.CheckOutServerEvent {
	response := a.checkOutResponse(nil)
	return &response.CheckOutServerEvent
}

func (a *Application) checkInResponse() *checkInResponse {
	snapshot := a.checkIn.Snapshot()
	return &checkInResponse{
		CheckInServerEvent: msg.CheckInServerEvent{
			State:   string(snapshot.State),
			Ticket:  present.NewCheckInView(snapshot.Ticket, a.locale),
			Message: errMessage(snapshot.LastErr),
		},
		Data: snapshot.Ticket,
	}
}

func (a *Application) checkOutResponse(confirmation *ticket.Confirmation) *checkOutResponse {
	snapshot := a.checkOut.Snapshot()
	return &checkOutResponse{
		CheckOutServerEvent: msg.CheckOutServerEvent{
			State:   string(snapshot.State),
			Ticket:  present.NewCheckOutView(snapshot.Resolved, a.kioskConfig.PaymentMethod(), a.locale),
			Message: errMessage(snapshot.LastErr),
		},
		Data:         snapshot.Resolved,
		Confirmation: confirmation,
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Store calls are not tied to the screen request, only a reset abandons
// them.
func storeContext() context.Context {
	return context.Background()
}

func (a *Application) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{
		Status:              "ok",
		GateName:            a.kioskConfig.GateName(),
		AvgStoreLatencyMsec: a.stats.AvgStoreLatency().Milliseconds(),
	})
}

func (a *Application) HandleCheckIn(c echo.Context) error {
	form := &checkInForm{}
	if err := c.Bind(form); err != nil {
		a.logger.Infof("cannot bind check-in form %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid check-in form")
	}

	if _, err := a.checkIn.SubmitForm(storeContext(), form.PlateNumber, form.VehicleType); err != nil {
		return a.httpError(err)
	}
	return c.JSON(http.StatusCreated, a.checkInResponse())
}

func (a *Application) HandleGetCheckIn(c echo.Context) error {
	return c.JSON(http.StatusOK, a.checkInResponse())
}

func (a *Application) HandleTicketImage(c echo.Context) error {
	issued, ok := a.checkIn.Issued()
	if !ok {
		return a.httpError(ticket.ErrNoTicketIssued)
	}

	buf := &bytes.Buffer{}
	if err := present.RenderTicket(buf, &issued, time.Now(), a.locale); err != nil {
		a.logger.Errorf("cannot render ticket slip[%v] %v", issued.SlipNumber, err)
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", present.TicketFilename(issued.PlateNumber)))
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (a *Application) HandleResetCheckIn(c echo.Context) error {
	a.checkIn.Reset()
	return c.JSON(http.StatusOK, a.checkInResponse())
}

func (a *Application) HandleCheckOutLookup(c echo.Context) error {
	artifact, err := a.readArtifact(c)
	if err != nil {
		return a.httpError(a.checkOut.Refuse(err))
	}

	if _, err := a.checkOut.Resolve(storeContext(), artifact); err != nil {
		return a.httpError(err)
	}
	return c.JSON(http.StatusOK, a.checkOutResponse(nil))
}

// readArtifact returns an empty artifact when nothing was uploaded, the
// session decides what that means.
func (a *Application) readArtifact(c echo.Context) (ticket.Artifact, error) {
	fileHeader, err := c.FormFile(artifactField)
	if err != nil {
		a.logger.Debugf("no artifact in request %v", err)
		return ticket.Artifact{}, nil
	}

	limit := a.config.MaxArtifactBytes()
	if fileHeader.Size > limit {
		return ticket.Artifact{}, fmt.Errorf("%w: size[%v] limit[%v]", ticket.ErrArtifactTooLarge, fileHeader.Size, *a.config.MaxArtifactSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return ticket.Artifact{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return ticket.Artifact{}, err
	}
	if int64(len(content)) > limit {
		return ticket.Artifact{}, fmt.Errorf("%w: limit[%v]", ticket.ErrArtifactTooLarge, *a.config.MaxArtifactSize)
	}

	return ticket.Artifact{
		Filename: fileHeader.Filename,
		Content:  content,
	}, nil
}

func (a *Application) HandleGetCheckOut(c echo.Context) error {
	return c.JSON(http.StatusOK, a.checkOutResponse(nil))
}

func (a *Application) HandlePay(c echo.Context) error {
	confirmation, err := a.checkOut.ConfirmPayment(storeContext())
	if err != nil {
		return a.httpError(err)
	}
	return c.JSON(http.StatusOK, a.checkOutResponse(confirmation))
}

func (a *Application) HandleResetCheckOut(c echo.Context) error {
	a.checkOut.Reset()
	return c.JSON(http.StatusOK, a.checkOutResponse(nil))
}

// HandleWs attaches a gate screen. It gets the current state right away,
// then every change.
func (a *Application) HandleWs(c echo.Context) error {
	conn, err := a.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	wsClient := client.NewClient(conn, c.RealIP(), a.hub)
	tick := a.clock.Tick(time.Now())
	initial := []struct {
		code  msg.EventCode
		event interface{}
	}{
		{msg.ConfigCode, a.hub.ConfigEvent()},
		{msg.ClockCode, &msg.ClockServerEvent{Date: tick.Date, Time: tick.Time}},
		{msg.CheckInCode, a.checkInEvent()},
		{msg.CheckOutCode, a.checkOutEvent()},
	}
	for _, item := range initial {
		wsMessage, err := msg.NewWsMessage(item.code, item.event)
		if err != nil {
			a.logger.Errorf("cannot marshal initial event code[%v] %v", item.code, err)
			continue
		}
		wsClient.Send(wsMessage)
	}

	a.logger.Infof("screen connected id[%v] ip[%v]", wsClient.Id(), c.RealIP())
	wsClient.Run()
	return nil
}

func (a *Application) httpError(err error) *echo.HTTPError {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.logger.Warnf("request failed status[%v] %v", status, err)
	} else {
		a.logger.Infof("request refused status[%v] %v", status, err)
	}
	return echo.NewHTTPError(status, err.Error())
}

func statusOf(err error) int {
	var (
		validationErr *ticket.ValidationError
		rejected      *ticket.StoreRejectedError
	)
	switch {
	case errors.As(err, &validationErr), errors.Is(err, ticket.ErrNoArtifactProvided):
		return http.StatusBadRequest
	case errors.Is(err, ticket.ErrArtifactTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ticket.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ticket.ErrAlreadyIssued),
		errors.Is(err, ticket.ErrSubmitInProgress),
		errors.Is(err, ticket.ErrNoTicketIssued),
		errors.Is(err, ticket.ErrNoTicketResolved),
		errors.Is(err, ticket.ErrPaymentInProgress),
		errors.Is(err, ticket.ErrStaleResponse):
		return http.StatusConflict
	case errors.Is(err, ticket.ErrLookupFailed), errors.Is(err, ticket.ErrNetworkFailure):
		return http.StatusBadGateway
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
