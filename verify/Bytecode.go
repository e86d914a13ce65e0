/*
File Name:  Bytecode.go

Contract bytecode verifier: keccak-256 of the bytes must equal the
account's recorded code hash.
*/

package verify

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
)

// Bytecode checks that keccak-256 of code equals codeHash.
func Bytecode(codeHash [32]byte, code []byte) error {
	if !bytes.Equal(crypto.Keccak256(code), codeHash[:]) {
		return ErrHashMismatch
	}
	return nil
}
