package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"subscription failed", ErrSubscriptionFailed, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"resource exhausted", ErrResourceExhausted, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"missing config", ErrMissingConfig, true},
		{"resource exhausted", ErrResourceExhausted, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"panic in message", fmt.Errorf("panic: system failure"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err), "error: %v", test.err)
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"invalid config", ErrInvalidConfig, true},
		{"unknown signal", ErrUnknownSignal, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsInvalid(test.err), "error: %v", test.err)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionLost))
	assert.Equal(t, ErrorFatal, Classify(ErrResourceExhausted))
	assert.Equal(t, ErrorInvalid, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "Cache", "Set", "store"))

	err := Wrap(ErrInvalidData, "Loader", "Load", "parse file")
	require.Error(t, err)
	assert.Equal(t, "Loader.Load: parse file failed: invalid data format", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidData))
	assert.True(t, IsInvalid(err), "Wrap should preserve the original classification")
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Nil(t, test.wrap(nil, "C", "M", "a"))

			err := test.wrap(ErrNoConnection, "NATSSource", "Subscribe", "subscribe")
			var ce *ClassifiedError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, test.class, ce.Class)
			assert.Equal(t, "NATSSource", ce.Component)
			assert.Equal(t, "Subscribe", ce.Operation)
			assert.True(t, errors.Is(err, ErrNoConnection))
			assert.Contains(t, err.Error(), "NATSSource.Subscribe: subscribe failed")
		})
	}
}

func TestClassifiedError_NoMessage(t *testing.T) {
	ce := &ClassifiedError{Class: ErrorFatal, Err: ErrResourceExhausted}
	assert.Equal(t, "resource exhausted", ce.Error())
}

func BenchmarkWrap(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = WrapTransient(ErrConnectionTimeout, "Client", "Connect", "dial")
	}
}
