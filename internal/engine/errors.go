package engine

import (
	"errors"
	"fmt"
	"reflect"
)

// Reason is the recorded cause of a failed dispatch. Reasons are reported
// through the statistics registry; they never cross the public API as
// errors.
type Reason string

const (
	// ReasonNone marks a successful dispatch.
	ReasonNone Reason = ""

	// ReasonNoSession: the engine is disconnected from the host.
	ReasonNoSession Reason = "svc=null"

	// ReasonPostTimeout: the host loop did not run the invocation in time.
	ReasonPostTimeout Reason = "dispatch_post_timeout"

	// ReasonReturnedFalse: the host refused the gesture.
	ReasonReturnedFalse Reason = "dispatch_returned_false"

	// ReasonPanic: the host primitive panicked.
	ReasonPanic Reason = "panic"

	// ReasonCancelled: the host cancelled an accepted gesture.
	ReasonCancelled Reason = "cancelled"

	// ReasonTimeout: no callback arrived before the completion deadline.
	ReasonTimeout Reason = "timeout"

	// ReasonCallerWaitTimeout: the waiting caller gave up before the
	// dispatch resolved.
	ReasonCallerWaitTimeout Reason = "caller_wait_timeout"

	// ReasonCallerInterrupted: the caller's context ended while waiting.
	ReasonCallerInterrupted Reason = "caller_interrupted"

	// ReasonResultNullRace: the caller was released without a result.
	// Only a broken bridge ordering can produce it.
	ReasonResultNullRace Reason = "result_null_race"

	// ReasonUnknown: a dispatch failed without any recorded reason.
	ReasonUnknown Reason = "false_unknown"
)

// VersionReason is the gate reason for hosts older than min.
func VersionReason(min int) Reason {
	return Reason(fmt.Sprintf("sdk<%d", min))
}

// Errors for engine setup. Dispatch failures are reported as Reasons.
var (
	ErrNilHost     = errors.New("engine: host is nil")
	ErrNilLoop     = errors.New("engine: host loop is nil")
	ErrNotSession  = errors.New("engine: session is not the active session")
	ErrSessionDone = errors.New("engine: session retired")
)

// reasoner lets host errors name their own failure reason.
type reasoner interface {
	Reason() string
}

// ReasonForError names a host error the way diagnostics report it: the
// error's own Reason() when it has one, otherwise its concrete type name.
func ReasonForError(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var r reasoner
	if errors.As(err, &r) {
		if s := r.Reason(); s != "" {
			return Reason(s)
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return Reason("error")
	}
	return Reason(t.Name())
}
