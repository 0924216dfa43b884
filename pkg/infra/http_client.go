package infra

import (
	"time"

	"github.com/imroc/req/v3"
)

// NewHttpClient builds the client used for the ticket store. It never
// retries, creating and paying a ticket must not be replayed.
func NewHttpClient(timeout time.Duration, dumpEachRequest bool) *req.Client {
	client := req.C().
		SetTimeout(timeout).
		SetCommonHeader("Accept", "application/json").
		SetUserAgent("ticket-kiosk")
	if dumpEachRequest {
		client.EnableDumpEachRequest()
	}
	return client
}
