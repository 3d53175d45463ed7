package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bakkerme/jobalert/internal/core"
	"github.com/robfig/cron/v3"
)

// CronProcessor emits a trigger event on each tick of a cron schedule. A tick
// that fires while the previous event is still unconsumed is dropped, so runs
// never queue up behind a slow one.
type CronProcessor struct {
	name     string
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan core.TriggerEvent
	stopOnce sync.Once
}

func NewCronProcessor(schedule, timezone string) *CronProcessor {
	return &CronProcessor{
		name:     "cron",
		schedule: schedule,
		timezone: timezone,
	}
}

func (c *CronProcessor) Name() string {
	return c.name
}

func (c *CronProcessor) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

func (c *CronProcessor) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan core.TriggerEvent, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, func() {
		c.emit(time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

func (c *CronProcessor) emit(at time.Time) {
	select {
	case c.events <- core.TriggerEvent{Timestamp: at, Metadata: map[string]interface{}{"schedule": c.schedule}}:
	default:
	}
}

// Next reports the next activation after from.
func (c *CronProcessor) Next(from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(c.schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

func (c *CronProcessor) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			ctx := c.cron.Stop()
			<-ctx.Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}
