/*
File Name:  Liveness.go

Periodic liveness probing and backoff bookkeeping, grounded on the
Peernet's Ping.go (periodic probe loop) and Blacklist.go (persistent
per-node penalty tracking). Implements spec §4.8: unreachable peer after
one PING is marked for re-probe after backoff; after three consecutive
failures it is evicted.
*/

package kademlia

import (
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

// Pinger sends a PING to a node and reports whether a PONG arrived before the deadline.
type Pinger func(rec *enr.Record, deadline time.Duration) (alive bool)

// Prober runs periodic liveness checks against a table's least-recently-seen
// entries and evicts nodes that fail three consecutive times.
type Prober struct {
	table    *Table
	ping     Pinger
	interval time.Duration
	timeout  time.Duration

	stop chan struct{}
}

// NewProber creates a liveness prober for a routing table.
func NewProber(table *Table, ping Pinger, interval, timeout time.Duration) *Prober {
	return &Prober{table: table, ping: ping, interval: interval, timeout: timeout, stop: make(chan struct{})}
}

// Run starts the periodic probing loop. It blocks until Stop is called.
func (p *Prober) Run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// Stop terminates the probing loop.
func (p *Prober) Stop() {
	close(p.stop)
}

func (p *Prober) sweep() {
	for _, e := range p.staleEntries() {
		if p.ping(e.Record, p.timeout) {
			e.Failures = 0
			e.LastSeen = time.Now().UTC()
			continue
		}

		if p.table.MarkFailure(e.Record.NodeID()) {
			p.table.Remove(e.Record.NodeID())
		}
	}
}

// staleEntries returns every entry not seen within the probe interval.
func (p *Prober) staleEntries() (stale []*Entry) {
	cutoff := time.Now().Add(-p.interval)

	p.table.mu.Lock()
	defer p.table.mu.Unlock()

	for _, bucket := range p.table.buckets {
		for _, e := range bucket {
			if e.LastSeen.Before(cutoff) {
				stale = append(stale, e)
			}
		}
	}
	return stale
}
