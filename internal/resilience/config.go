package resilience

import "time"

// FromSettings converts flat configuration values to a Policy. Non-positive
// values keep the DefaultPolicy setting; a zero delay is honored.
func FromSettings(maxAttempts, delayMs, backoffBaseMs, maxBackoffMs, timeoutSecs int, multiplier float64) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if delayMs >= 0 {
		p.Delay = time.Duration(delayMs) * time.Millisecond
	}
	if backoffBaseMs > 0 {
		p.BaseBackoff = time.Duration(backoffBaseMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if timeoutSecs > 0 {
		p.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if multiplier > 0 {
		p.Multiplier = multiplier
	}
	return p
}
