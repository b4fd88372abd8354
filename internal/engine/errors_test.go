package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type denied struct{}

func (denied) Error() string  { return "denied" }
func (denied) Reason() string { return "host_denied" }

type busyError struct{}

func (*busyError) Error() string { return "busy" }

func TestReasonForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"own reason", denied{}, "host_denied"},
		{"wrapped own reason", fmt.Errorf("dispatch: %w", denied{}), "host_denied"},
		{"pointer type name", &busyError{}, "busyError"},
		{"stdlib error", errors.New("x"), "errorString"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReasonForError(tt.err))
		})
	}
}

func TestVersionReason(t *testing.T) {
	assert.Equal(t, Reason("sdk<24"), VersionReason(24))
}
