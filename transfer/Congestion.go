/*
File Name:  Congestion.go

LEDBAT-style congestion control and RTO estimation, per spec §4.6:
RTO = srtt + 4*rttvar, clamped to [500ms, 3s], doubling on each successive
retransmit of the same packet. Structurally grounded on Peernet's udt
package's congestion bookkeeping (round-trip sampling feeding a bounded
retransmit timer), rewritten against the LEDBAT target-delay formula
instead of udt's own AIMD-style window growth.
*/

package transfer

import "time"

const (
	minRTO = 500 * time.Millisecond
	maxRTO = 3 * time.Second

	// ledbatTarget is the target queuing delay LEDBAT tries to hold the path to.
	ledbatTarget = 100 * time.Millisecond

	// ledbatGain controls how aggressively the window reacts to the delay signal.
	ledbatGain = 1.0
)

// Congestion tracks one session's send window and round-trip estimate.
type Congestion struct {
	window uint32 // current congestion window, in bytes
	srtt   time.Duration
	rttvar time.Duration

	retransmits int // consecutive retransmits of the current packet
}

// NewCongestion starts a session with a conservative initial window.
func NewCongestion(mtu uint32) *Congestion {
	return &Congestion{window: mtu}
}

// Window returns the current congestion window in bytes.
func (c *Congestion) Window() uint32 {
	return c.window
}

// OnSample folds in a fresh round-trip sample and one-way queuing-delay
// estimate, then applies the LEDBAT window update.
func (c *Congestion) OnSample(rtt, queuingDelay time.Duration) {
	if c.srtt == 0 {
		c.srtt = rtt
		c.rttvar = rtt / 2
	} else {
		delta := c.srtt - rtt
		if delta < 0 {
			delta = -delta
		}
		c.rttvar = (3*c.rttvar + delta) / 4
		c.srtt = (7*c.srtt + rtt) / 8
	}
	c.retransmits = 0

	offset := float64(ledbatTarget-queuingDelay) / float64(ledbatTarget)
	delta := int64(ledbatGain * offset * float64(c.window))
	newWindow := int64(c.window) + delta
	if newWindow < int64(HeaderSize) {
		newWindow = int64(HeaderSize)
	}
	c.window = uint32(newWindow)
}

// RTO returns the current retransmission timeout, clamped to [minRTO, maxRTO].
func (c *Congestion) RTO() time.Duration {
	rto := c.srtt + 4*c.rttvar
	if rto < minRTO {
		rto = minRTO
	}
	if rto > maxRTO {
		rto = maxRTO
	}
	return rto
}

// OnLoss registers a retransmit, halving the window (LEDBAT/TCP-friendly
// backoff) and doubling the next RTO via the caller re-reading RTO() after
// incrementing retransmits.
func (c *Congestion) OnLoss() {
	c.retransmits++
	c.window /= 2
	if c.window < HeaderSize {
		c.window = HeaderSize
	}
	// Double srtt/rttvar so the next RTO() call reflects the doubling rule;
	// this is bounded by maxRTO regardless of how many times it compounds.
	c.srtt *= 2
	c.rttvar *= 2
}

// Retransmits returns how many consecutive times the current packet has been retransmitted.
func (c *Congestion) Retransmits() int {
	return c.retransmits
}
