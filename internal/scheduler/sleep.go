package scheduler

import "nanokern/internal/process"

// Sleep parks p until untilTick, then yields to its core. The process's
// goroutine does not return from this call until some later tick promotes
// it back to Ready and the core hands it the resume baton again.
func (c *Core) Sleep(p *process.Process, untilTick int64) {
	p.WakeTick.Store(untilTick)
	p.SetState(process.Sleeping)
	c.Yield(p, ReasonSleeping)
	<-p.ResumeChan()
}
