/*
File Name:  Errors.go

Shared verifier error values.
*/

package verify

import "errors"

// ErrHashMismatch is returned when a recomputed hash does not match the claimed identifier.
var ErrHashMismatch = errors.New("verify: hash mismatch")

// ErrRootMismatch is returned when a recomputed trie/accumulator root does not match the claimed root.
var ErrRootMismatch = errors.New("verify: root mismatch")
