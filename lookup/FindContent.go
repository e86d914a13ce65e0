/*
File Name:  FindContent.go

Iterative FINDCONTENT lookup (spec §4.3.2): the same alpha-parallel
shortlist machinery as FindNode, but each response is a three-way union
dispatch instead of a plain node list. The caller gets the first verified
payload; a failed verification is treated as no-answer from that peer and
the lookup continues.
*/

package lookup

import (
	"context"
	"errors"

	"github.com/PortalNetworkOfficial/core/enr"
	"github.com/PortalNetworkOfficial/core/kademlia"
	"github.com/PortalNetworkOfficial/core/wire"
)

// ErrNotFound is returned when the lookup deadline elapses with no verified content found.
var ErrNotFound = errors.New("lookup: content not found before deadline")

// TransferDialer opens a bulk-transfer session for a CONTENT response's
// connection-id arm and returns the completed payload.
type TransferDialer func(ctx context.Context, source *enr.Record, connectionID uint16) ([]byte, error)

// Verifier validates a candidate payload before it is accepted as the lookup's result.
type Verifier func(payload []byte) bool

// ContentResult is the outcome of a successful FindContentLookup.
type ContentResult struct {
	Payload []byte
	Source  *enr.Record
}

// FindContentLookup runs an iterative lookup for a content key, dispatching
// each CONTENT response's union arm, and returns the first payload that
// passes verify.
func FindContentLookup(ctx context.Context, target enr.NodeID, key []byte, seeds []*enr.Record, transport Transport, dial TransferDialer, verify Verifier) (*ContentResult, error) {
	ctx, cancel := lookupDeadlineCtx(ctx)
	defer cancel()

	sl := newShortlist(target, kademlia.BucketSize)
	for _, s := range seeds {
		sl.addIfNew(s)
	}

	type outcome struct {
		peer    *enr.Record
		content *wire.Content
		err     error
	}
	results := make(chan outcome)

	outstanding := 0
	for {
		if sl.done() && outstanding == 0 {
			return nil, ErrNotFound
		}

		for outstanding < Alpha {
			batch := sl.nextPending(Alpha - outstanding)
			if len(batch) == 0 {
				break
			}
			for _, c := range batch {
				sl.markQueried(c.record.NodeID())
				outstanding++
				go func(peer *enr.Record) {
					reqCtx, reqCancel := requestCtx(ctx)
					defer reqCancel()
					content, err := transport.SendFindContent(reqCtx, peer, key)
					select {
					case results <- outcome{peer: peer, content: content, err: err}:
					case <-ctx.Done():
					}
				}(c.record)
			}
		}

		if outstanding == 0 {
			return nil, ErrNotFound
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotFound
		case r := <-results:
			outstanding--
			if r.err != nil || r.content == nil {
				continue
			}
			sl.markResponded(r.peer.NodeID())

			result, handled := dispatchContent(ctx, r.peer, r.content, sl, dial, verify)
			if handled && result != nil {
				return result, nil
			}
		}
	}
}

// dispatchContent handles one arm of the CONTENT union. It returns
// (result, true) when a verified payload was produced, (nil, true) when the
// arm was handled but yielded nothing usable, and (nil, false) for arms that
// only update lookup state (the enrs arm).
func dispatchContent(ctx context.Context, peer *enr.Record, content *wire.Content, sl *shortlist, dial TransferDialer, verify Verifier) (*ContentResult, bool) {
	switch content.Union {
	case wire.ContentUnionPayload:
		if verify == nil || verify(content.Payload) {
			return &ContentResult{Payload: content.Payload, Source: peer}, true
		}
		return nil, true

	case wire.ContentUnionConnectionID:
		if dial == nil {
			return nil, true
		}
		payload, err := dial(ctx, peer, content.ConnectionID)
		if err != nil {
			return nil, true
		}
		if verify == nil || verify(payload) {
			return &ContentResult{Payload: payload, Source: peer}, true
		}
		return nil, true

	case wire.ContentUnionEnrs:
		for _, raw := range content.Enrs {
			rec, err := decodeEnr(raw)
			if err == nil {
				sl.addIfNew(rec)
			}
		}
		return nil, false

	default:
		return nil, true
	}
}
