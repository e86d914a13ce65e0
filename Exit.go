/*
File Name:  Exit.go

Exit codes signal why startup failed. These are universal across clients
embedding this library. Embedders are encouraged to log additional
detail; third-party clients may define additional codes past this range.
Narrowed from Peernet's table to this client's own failure surface
(no webapi/blockchain/API-key concepts here).
*/

package core

const (
	ExitSuccess           = 0 // Never returned; present for symmetry with the other codes.
	ExitErrorConfigAccess = 1 // Error accessing the config file.
	ExitErrorConfigParse  = 2 // Error parsing the config file.
	ExitErrorLogInit      = 3 // Error initializing the log file.
	ExitPrivateKeyCorrupt = 4 // Stored private key is corrupt.
	ExitPrivateKeyCreate  = 5 // Cannot create a new private key.
	ExitGraceful          = 6 // Graceful shutdown.
)
