package handshake

import (
	"fmt"

	"go.minekube.com/floodgate/pkg/floodgate/connection"
)

// ResultType is the terminal outcome of a handshake.
type ResultType int

const (
	// ResultException is an unexpected failure while handling the handshake.
	ResultException ResultType = iota
	// ResultNotFloodgateData means the connection is an ordinary Java connection.
	ResultNotFloodgateData
	// ResultDecryptError means the token was tampered with or encrypted with another key.
	ResultDecryptError
	// ResultInvalidData means the decrypted payload could not be decoded.
	ResultInvalidData
	// ResultInvalidDataLength means the payload has the wrong field count.
	ResultInvalidDataLength
	// ResultSuccess means the Bedrock player was resolved.
	ResultSuccess
)

var resultNames = [...]string{
	ResultException:         "EXCEPTION",
	ResultNotFloodgateData:  "NOT_FLOODGATE_DATA",
	ResultDecryptError:      "DECRYPT_ERROR",
	ResultInvalidData:       "INVALID_DATA",
	ResultInvalidDataLength: "INVALID_DATA_LENGTH",
	ResultSuccess:           "SUCCESS",
}

func (t ResultType) String() string {
	if t < 0 || int(t) >= len(resultNames) {
		return fmt.Sprintf("ResultType(%d)", int(t))
	}
	return resultNames[t]
}

// Result is the outcome of a single handshake attempt.
type Result struct {
	Type ResultType
	// Data is the state the hooks saw. It is never nil.
	Data *Data
	// Connection is the registered connection. It is only set on
	// success and when the channel was still active.
	Connection *connection.Connection
	// Err is the cause of a failed handshake.
	Err error
}

// DisconnectReason returns the reason to disconnect the player with, if any.
func (r *Result) DisconnectReason() string { return r.Data.DisconnectReason() }

// ShouldDisconnect reports whether the player must be rejected.
func (r *Result) ShouldDisconnect() bool {
	switch r.Type {
	case ResultSuccess, ResultNotFloodgateData:
		return r.Data.ShouldDisconnect()
	default:
		return true
	}
}

// Accepted reports whether a Bedrock player was resolved and may join.
func (r *Result) Accepted() bool {
	return r.Type == ResultSuccess && !r.Data.ShouldDisconnect()
}

// Hostname returns the hostname to continue the handshake with.
func (r *Result) Hostname() string { return r.Data.Hostname() }

func (r *Result) String() string {
	if r.Connection != nil {
		return fmt.Sprintf("%s %s", r.Type, r.Connection)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Type, r.Err)
	}
	return r.Type.String()
}
