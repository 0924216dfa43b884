package clock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/present"
)

// Tick is what the screens show next to the gate name.
type Tick struct {
	Date string
	Time string
}

// Clock only produces display strings, it never touches ticket state.
type Clock struct {
	// Notify hub of every tick. Ticks are dropped while nobody reads,
	// the next one is a second away.
	NotifyTick chan *Tick

	interval time.Duration
	locale   present.Locale

	logger *zap.SugaredLogger
}

func NewClock(interval time.Duration, locale present.Locale, loggerFactory *infra.LoggerFactory) *Clock {
	return &Clock{
		NotifyTick: make(chan *Tick, 1),
		interval:   interval,
		locale:     locale,
		logger:     loggerFactory.Create("Clock").Sugar(),
	}
}

// Tick formats t for the screens.
func (c *Clock) Tick(t time.Time) *Tick {
	return &Tick{
		Date: present.FormatDate(t, c.locale),
		Time: present.FormatClock(t),
	}
}

// Run ticks until ctx is done. The ticker is released on return.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Infof("clock started interval[%v] locale[%v]", c.interval, c.locale)
	for {
		select {
		case <-ctx.Done():
			c.logger.Infof("clock stopped")
			return nil

		case t := <-ticker.C:
			tick := c.Tick(t)
			select {
			case c.NotifyTick <- tick:
			default:
				c.logger.Debugf("dropped tick time[%v]", tick.Time)
			}
		}
	}
}
