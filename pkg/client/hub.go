package client

import (
	"context"

	"github.com/emirpasic/gods/maps/hashmap"
	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/clock"
	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/msg"
)

const broadcastBufferSize = 1024

// Hub pushes clock ticks, config changes and workflow state to every
// connected gate screen. Only the Run goroutine touches clients.
type Hub struct {
	// Registered clients. Key value: client.id -> client.
	clients *hashmap.Map

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Messages for every client.
	broadcast chan *msg.WsMessage

	// Closed when Run returns.
	done chan struct{}

	clock       *clock.Clock
	kioskConfig *config.KioskConfig

	logger *zap.SugaredLogger
}

func ProvideHub(clock *clock.Clock, kioskConfig *config.KioskConfig, loggerFactory *infra.LoggerFactory) *Hub {
	return &Hub{
		clients: hashmap.New(),

		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		broadcast:  make(chan *msg.WsMessage, broadcastBufferSize),
		done:       make(chan struct{}),

		clock:       clock,
		kioskConfig: kioskConfig,
		logger:      loggerFactory.Create("Hub").Sugar(),
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.TryClose()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every client. It never blocks the caller, a
// full queue drops the event.
func (h *Hub) Publish(code msg.EventCode, event interface{}) {
	wsMessage, err := msg.NewWsMessage(code, event)
	if err != nil {
		h.logger.Errorf("cannot marshal event code[%v] %v", code, err)
		return
	}

	select {
	case h.broadcast <- wsMessage:
	default:
		h.logger.Warnf("broadcast queue full, dropped event code[%v]", code)
	}
}

// ConfigEvent is the current runtime config as sent to the screens.
func (h *Hub) ConfigEvent() *msg.ConfigServerEvent {
	return &msg.ConfigServerEvent{
		GateName:      h.kioskConfig.GateName(),
		PaymentMethod: string(h.kioskConfig.PaymentMethod()),
	}
}

func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for _, value := range h.clients.Values() {
			h.removeClient(value.(*Client))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Infof("hub stopped, closing clients[%v]", h.clients.Size())
			return nil

		case client := <-h.register:
			h.logger.Debugf("register client id[%v] ip[%v]", client.id, client.ip)
			h.clients.Put(client.id, client)

		case client := <-h.unregister:
			if _, ok := h.clients.Get(client.id); !ok {
				continue
			}
			h.logger.Debugf("unregister client id[%v]", client.id)
			h.removeClient(client)

		case wsMessage := <-h.broadcast:
			h.sendAll(wsMessage)

		case tick := <-h.clock.NotifyTick:
			wsMessage, err := msg.NewWsMessage(msg.ClockCode, &msg.ClockServerEvent{
				Date: tick.Date,
				Time: tick.Time,
			})
			if err != nil {
				h.logger.Errorf("cannot marshal ClockServerEvent %v", err)
				continue
			}
			h.sendAll(wsMessage)

		case <-h.kioskConfig.NotifyChange:
			event := h.ConfigEvent()
			h.logger.Infof("config changed event[%+v]", event)
			wsMessage, err := msg.NewWsMessage(msg.ConfigCode, event)
			if err != nil {
				h.logger.Errorf("cannot marshal ConfigServerEvent %v", err)
				continue
			}
			h.sendAll(wsMessage)
		}
	}
}

// sendAll drops clients whose send buffer is full, they are assumed to be
// dead or stuck.
func (h *Hub) sendAll(wsMessage *msg.WsMessage) {
	for _, value := range h.clients.Values() {
		client := value.(*Client)
		if !client.Send(wsMessage) {
			h.logger.Warnf("id[%v] send buffer is full, closing it", client.id)
			h.removeClient(client)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.clients.Remove(client.id)
	client.TryClose()
}
