package synapse

import (
	"errors"
	"testing"
)

func TestHandlerError(t *testing.T) {
	underlyingErr := errors.New("something went wrong")
	err := &HandlerError{
		Subscriber: "widget",
		EventType:  "*synapse.testEvent",
		Err:        underlyingErr,
	}

	errStr := err.Error()
	if errStr != "handler error for subscriber widget on *synapse.testEvent: something went wrong" {
		t.Errorf("unexpected error string: %s", errStr)
	}

	if err.Unwrap() != underlyingErr {
		t.Error("Unwrap() should return the underlying error")
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is should match the underlying error")
	}
}

func TestPanicError(t *testing.T) {
	err := &PanicError{
		Subscriber: "widget",
		EventType:  "*synapse.testEvent",
		Value:      "panic value",
		Stack:      "fake stack trace",
	}

	errStr := err.Error()
	if errStr != "handler panic for subscriber widget on *synapse.testEvent" {
		t.Errorf("unexpected error string: %s", errStr)
	}

	if !errors.Is(err, ErrHandlerPanic) {
		t.Error("errors.Is should match ErrHandlerPanic")
	}
	if errors.Is(err, ErrInvalidSubscription) {
		t.Error("errors.Is should not match unrelated errors")
	}
}

func TestRegistrationErrors_MatchFamilyRoot(t *testing.T) {
	registrationErrors := map[string]error{
		"ErrNilEventType":    ErrNilEventType,
		"ErrNonPointerEvent": ErrNonPointerEvent,
		"ErrNotEvent":        ErrNotEvent,
		"ErrNilRef":          ErrNilRef,
		"ErrNilThunk":        ErrNilThunk,
		"ErrNilCallback":     ErrNilCallback,
		"ErrInvalidPriority": ErrInvalidPriority,
	}

	for name, err := range registrationErrors {
		if !errors.Is(err, ErrInvalidSubscription) {
			t.Errorf("%s should match ErrInvalidSubscription", name)
		}
		if err.Error() == "" {
			t.Errorf("%s should have a non-empty error message", name)
		}
	}
}

func TestRegistrationErrors_Distinct(t *testing.T) {
	registrationErrors := []error{
		ErrNilEventType,
		ErrNonPointerEvent,
		ErrNotEvent,
		ErrNilRef,
		ErrNilThunk,
		ErrNilCallback,
		ErrInvalidPriority,
	}

	for i, err1 := range registrationErrors {
		for j, err2 := range registrationErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("registration errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestSentinelErrors_NotNil(t *testing.T) {
	sentinelErrors := map[string]error{
		"ErrInvalidSubscription": ErrInvalidSubscription,
		"ErrHandlerPanic":        ErrHandlerPanic,
		"ErrSubscriberClosed":    ErrSubscriberClosed,
	}

	for name, err := range sentinelErrors {
		if err == nil {
			t.Errorf("%s should not be nil", name)
		}
		if err.Error() == "" {
			t.Errorf("%s should have a non-empty error message", name)
		}
	}
}
