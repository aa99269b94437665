package chatstream

// ExpireDeadline runs the live session's inactivity expiry the way a deadline
// does when it fires: the timer is already disarmed when the session lock is
// taken.
func ExpireDeadline(c *Controller) {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil {
		return
	}
	s.timer.Cancel()
	c.expire(s)
}
