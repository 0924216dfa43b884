package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"github.com/labstack/gommon/bytes"
	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

const (
	ticketsPath      = "/tickets"
	checkTicketsPath = "/tickets/check"

	// Multipart field the store reads the uploaded image from.
	artifactField = "image"

	lookupRetryInterval = 500 * time.Millisecond
)

// Every store answer wraps its payload in data. A missing data means the
// store had nothing to return.
type envelope[T any] struct {
	Data    *T     `json:"data"`
	Message string `json:"message"`
}

// Client talks to the ticket store service.
type Client struct {
	baseURL          string
	lookupRetryCount int

	httpClient *req.Client
	logger     *zap.SugaredLogger
}

func NewClient(baseURL string, lookupRetryCount int, httpClient *req.Client, loggerFactory *infra.LoggerFactory) *Client {
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		lookupRetryCount: lookupRetryCount,
		httpClient:       httpClient,
		logger:           loggerFactory.Create("StoreClient").Sugar(),
	}
}

func (c *Client) request(ctx context.Context) *req.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
}

// CreateTicket issues a new ticket. Never retried.
func (c *Client) CreateTicket(ctx context.Context, entry ticket.Entry) (*ticket.OpenTicket, error) {
	result := &envelope[ticket.OpenTicket]{}

	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(entry).
		SetResult(result).
		Post(c.baseURL + ticketsPath)
	if err != nil {
		c.logger.Errorf("create ticket request failed plate[%v] %v", entry.PlateNumber, err)
		return nil, fmt.Errorf("%w: %v", ticket.ErrNetworkFailure, err)
	}

	if !isSuccess(resp) {
		rejected := rejection(resp)
		c.logger.Warnf("create ticket rejected plate[%v] status[%v] reason[%v]", entry.PlateNumber, rejected.Status, rejected.Reason)
		return nil, rejected
	}

	if result.Data == nil {
		c.logger.Warnf("create ticket returned no data plate[%v] status[%v]", entry.PlateNumber, resp.StatusCode)
		return nil, &ticket.StoreRejectedError{Status: resp.StatusCode, Reason: "no ticket in response"}
	}

	c.logger.Infof("created ticket slip[%v] plate[%v]", result.Data.SlipNumber, result.Data.PlateNumber)
	return result.Data, nil
}

// CheckTicket resolves an uploaded image to an open ticket with its fee.
// Returns ticket.ErrNotFound when the store has no ticket for it.
func (c *Client) CheckTicket(ctx context.Context, artifact ticket.Artifact) (*ticket.ClosedTicketView, error) {
	result := &envelope[ticket.ClosedTicketView]{}

	filename := artifact.Filename
	if filename == "" {
		filename = "ticket.jpg"
	}

	resp, err := c.postArtifact(ctx, filename, artifact.Content, result)
	if err != nil {
		c.logger.Errorf("check ticket request failed size[%v] %v", bytes.Format(int64(len(artifact.Content))), err)
		return nil, fmt.Errorf("%w: %v", ticket.ErrNetworkFailure, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Infof("check ticket found nothing status[%v]", resp.StatusCode)
		return nil, ticket.ErrNotFound
	}

	if !isSuccess(resp) {
		rejected := rejection(resp)
		c.logger.Warnf("check ticket rejected status[%v] reason[%v]", rejected.Status, rejected.Reason)
		return nil, rejected
	}

	if result.Data == nil {
		c.logger.Infof("check ticket returned no data message[%v]", result.Message)
		return nil, ticket.ErrNotFound
	}

	c.logger.Infof("checked ticket slip[%v] fee[%v]", result.Data.SlipNumber, result.Data.TotalFee)
	return result.Data, nil
}

// PayTicket closes a ticket. Never retried.
func (c *Client) PayTicket(ctx context.Context, payment ticket.PaymentRequest) (*ticket.Confirmation, error) {
	result := &envelope[ticket.Confirmation]{}

	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payment).
		SetResult(result).
		Patch(c.baseURL + ticketsPath)
	if err != nil {
		c.logger.Errorf("pay ticket request failed slip[%v] %v", payment.SlipNumber, err)
		return nil, fmt.Errorf("%w: %v", ticket.ErrNetworkFailure, err)
	}

	if !isSuccess(resp) {
		rejected := rejection(resp)
		c.logger.Warnf("pay ticket rejected slip[%v] status[%v] reason[%v]", payment.SlipNumber, rejected.Status, rejected.Reason)
		return nil, rejected
	}

	if result.Data == nil {
		c.logger.Warnf("pay ticket returned no data slip[%v]", payment.SlipNumber)
		return nil, &ticket.StoreRejectedError{Status: resp.StatusCode, Reason: "no confirmation in response"}
	}

	c.logger.Infof("paid ticket slip[%v] method[%v]", payment.SlipNumber, payment.PaymentMethod)
	return result.Data, nil
}

// postArtifact uploads the image, retrying lookupRetryCount times when the
// request does not get an answer. Each attempt builds a fresh multipart
// body. An answer of any status is never retried.
func (c *Client) postArtifact(ctx context.Context, filename string, content []byte, result interface{}) (*req.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.request(ctx).
			SetFileBytes(artifactField, filename, content).
			SetResult(result).
			Post(c.baseURL + checkTicketsPath)
		if err == nil || attempt >= c.lookupRetryCount {
			return resp, err
		}

		c.logger.Warnf("check ticket attempt[%v] failed, retrying %v", attempt+1, err)
		timer := time.NewTimer(lookupRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func isSuccess(resp *req.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// rejection reads the reason out of an error body. The store sends
// {"message": "..."}, anything else is kept as plain text.
func rejection(resp *req.Response) *ticket.StoreRejectedError {
	rejected := &ticket.StoreRejectedError{Status: resp.StatusCode}

	body := strings.TrimSpace(resp.String())
	if body == "" {
		rejected.Reason = http.StatusText(resp.StatusCode)
		return rejected
	}

	errBody := struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}{}
	if err := json.Unmarshal([]byte(body), &errBody); err == nil {
		rejected.Reason = errBody.Message
		if rejected.Reason == "" {
			rejected.Reason = errBody.Error
		}
		if rejected.Reason != "" {
			return rejected
		}
	}

	rejected.Reason = body
	return rejected
}
