package rsl

import "fmt"

/*------------------------------------------------------------------
 * Purpose: Error kinds surfaced by the core. Recoverable errors
 * are returned up to the dispatch loop, logged, and dropped there —
 * they never panic and never block a subsequent message. Unrecoverable
 * per-lchan conditions are expressed as state transitions and signals,
 * not as errors (see lchan_state.go).
 *---------------------------------------------------------------*/

// ProtocolError is a truncated frame, missing mandatory IE, wrong
// ie_chan tag, or unknown discriminator.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "rsl: protocol error: " + e.Reason }

// UnknownChannelError is a chan_nr decoding failure.
type UnknownChannelError struct {
	ChanNr byte
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("rsl: unknown channel for chan_nr 0x%02x", e.ChanNr)
}

// ActivationRejectedError wraps a CHAN ACTIV NACK cause.
type ActivationRejectedError struct {
	Cause byte
}

func (e *ActivationRejectedError) Error() string {
	return fmt.Sprintf("rsl: activation rejected, cause 0x%02x", e.Cause)
}

// LinkLayerFailureError wraps an RLL ERROR IND cause.
type LinkLayerFailureError struct {
	Cause byte
}

func (e *LinkLayerFailureError) Error() string {
	return fmt.Sprintf("rsl: link layer failure, cause 0x%02x", e.Cause)
}

// ActivationTimeoutError reports that the activation watchdog fired.
type ActivationTimeoutError struct {
	Lchan string
}

func (e *ActivationTimeoutError) Error() string {
	return "rsl: activation timeout for " + e.Lchan
}

// DeactivationTimeoutError reports that the deactivation watchdog fired.
type DeactivationTimeoutError struct {
	Lchan string
}

func (e *DeactivationTimeoutError) Error() string {
	return "rsl: deactivation timeout for " + e.Lchan
}

// ConfigurationError is raised by an encoding API asked to produce an
// IE for an unsupported combination of settings; no message is sent.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "rsl: configuration error: " + e.Reason }
