package scheduler

import "nanokern/internal/process"

// Exit marks p Dead and yields to its core for the last time. The caller
// must return immediately afterward; the process's goroutine is expected
// to terminate and nothing will ever send on its resume channel again.
func (c *Core) Exit(p *process.Process) {
	p.SetState(process.Dead)
	c.Yield(p, ReasonExited)
}
