/*
File Name:  Bootstrap.go

Warms up each sub-protocol's routing table from the configured bootnode
list on startup: ping every bootnode, insert the ones that answer, then
run a find-self lookup through them to pull in their neighbors. Retries
in two phases exactly like Peernet's bootstrap(): fast retries for
the first stretch, then a slow trickle, until enough bootnodes have
answered or the budget runs out.
*/

package core

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/PortalNetworkOfficial/core/enr"
)

// ErrInvalidBootnode is returned when a configured bootnode string is not a
// valid "enr:"-prefixed record.
var ErrInvalidBootnode = errors.New("core: invalid bootnode record")

// bootstrapMinConnected is the number of answering bootnodes that ends the
// retry loop early, matching Peernet's "at least 2 root peers" rule.
const bootstrapMinConnected = 2

// EncodeBootnode renders rec as the "enr:"-prefixed text form used in
// Config.Bootnodes and printed by an operator's own node at startup.
func EncodeBootnode(rec *enr.Record) string {
	return "enr:" + base64.RawURLEncoding.EncodeToString(enr.Encode(rec))
}

// ParseBootnode parses the "enr:"-prefixed text form back into a record.
func ParseBootnode(s string) (*enr.Record, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "enr:") {
		return nil, ErrInvalidBootnode
	}
	raw, err := base64.RawURLEncoding.DecodeString(s[len("enr:"):])
	if err != nil {
		return nil, ErrInvalidBootnode
	}
	return enr.Decode(raw)
}

// Bootstrap connects every configured sub-protocol's routing table to the
// network via Config.Bootnodes. It blocks until either bootstrapMinConnected
// bootnodes have answered on every overlay, or the retry budget is spent.
func (n *Node) Bootstrap(ctx context.Context) error {
	if len(n.Config.Bootnodes) == 0 {
		return ErrNoBootnodes
	}

	seeds := make([]*enr.Record, 0, len(n.Config.Bootnodes))
	for _, s := range n.Config.Bootnodes {
		rec, err := ParseBootnode(s)
		if err != nil {
			log.Printf("bootstrap: skipping bootnode %q: %v\n", s, err)
			continue
		}
		seeds = append(seeds, rec)
	}
	if len(seeds) == 0 {
		return ErrNoBootnodes
	}

	connected := make(map[enr.SubProtocol]map[enr.NodeID]struct{})
	contactAll := func() {
		for _, tag := range n.Registry.Tags() {
			for _, rec := range seeds {
				if n.contactBootnode(ctx, tag, rec) {
					if connected[tag] == nil {
						connected[tag] = make(map[enr.NodeID]struct{})
					}
					connected[tag][rec.NodeID()] = struct{}{}
				}
			}
		}
	}
	settled := func() bool {
		for _, tag := range n.Registry.Tags() {
			if len(connected[tag]) < bootstrapMinConnected && len(connected[tag]) < len(seeds) {
				return false
			}
		}
		return true
	}

	contactAll()
	if settled() {
		return nil
	}

	// Phase 1: every 7 seconds for roughly 10 minutes.
	for i := 0; i < 10*60/7; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(7 * time.Second):
		}
		contactAll()
		if settled() {
			return nil
		}
	}

	// Phase 2: every 5 minutes for roughly 1 hour.
	for i := 0; i < 60/5; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Minute):
		}
		contactAll()
		if settled() {
			return nil
		}
	}

	log.Printf("bootstrap: unable to reach %d bootnodes on every sub-protocol, continuing with what was found\n", bootstrapMinConnected)
	return nil
}

// contactBootnode pings one bootnode on one sub-protocol, inserts it into
// the routing table on success, and fans out a find-self lookup through it
// to pull in its neighbors too.
func (n *Node) contactBootnode(ctx context.Context, tag enr.SubProtocol, rec *enr.Record) bool {
	o, ok := n.Registry.Get(tag)
	if !ok {
		return false
	}
	if _, found := o.Table.Find(rec.NodeID()); found {
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := n.ping(pingCtx, tag, rec)
	cancel()
	if err != nil {
		return false
	}
	o.Table.Insert(rec)

	neighbors := n.FindNode(ctx, tag, n.Local.NodeID())
	for _, neighbor := range neighbors {
		if neighbor.NodeID() != n.Local.NodeID() {
			o.Table.Insert(neighbor)
		}
	}
	return true
}
