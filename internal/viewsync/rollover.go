package viewsync

import (
	"context"
	"log"
	"time"
)

// NextMidnight returns the start of the calendar day after now in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// WatchDayRollover re-renders every view at each local midnight so recurring
// tasks completed yesterday read as pending without a store write. It returns
// when ctx is done or the core is closed.
func (c *Core) WatchDayRollover(ctx context.Context) {
	for {
		c.mu.Lock()
		closed := c.closed
		now, loc := c.now(), c.loc
		var stopped <-chan struct{}
		if c.ctx != nil {
			stopped = c.ctx.Done()
		}
		c.mu.Unlock()
		if closed {
			return
		}

		// a second past midnight keeps clock jitter from landing on the old day
		wait := NextMidnight(now, loc).Sub(now) + time.Second
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopped:
			timer.Stop()
			return
		case <-timer.C:
			log.Printf("[ViewSync] day rollover, refreshing views")
			c.Refresh()
		}
	}
}
