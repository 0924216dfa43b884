package msg

import "parking-gate/ticket-kiosk/pkg/present"

type EventCode uint

const (
	ClockCode    EventCode = 1000
	CheckInCode  EventCode = 1001
	CheckOutCode EventCode = 1002
	ConfigCode   EventCode = 1003
)

type ClockServerEvent struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// CheckInServerEvent is sent on every check-in state change.
type CheckInServerEvent struct {
	State   string              `json:"state"`
	Ticket  present.CheckInView `json:"ticket"`
	Message string              `json:"message,omitempty"`
}

// CheckOutServerEvent is sent on every check-out state change.
type CheckOutServerEvent struct {
	State   string               `json:"state"`
	Ticket  present.CheckOutView `json:"ticket"`
	Message string               `json:"message,omitempty"`
}

type ConfigServerEvent struct {
	GateName      string `json:"gateName"`
	PaymentMethod string `json:"paymentMethod"`
}
