package errcode

import (
	"errors"
	"fmt"
	"testing"
)

// TestLayeredError_New codes are prefixed with the module code
func TestLayeredError_New(t *testing.T) {
	err := New(9901, "error.logconf.probe", "probe")

	if err.Code() != 209901 {
		t.Errorf("expected code 209901, got %d", err.Code())
	}
	if err.MsgKey() != "error.logconf.probe" {
		t.Errorf("unexpected msgKey %s", err.MsgKey())
	}
	if err.Message() != "probe" {
		t.Errorf("unexpected msg %s", err.Message())
	}
}

// TestLayeredError_Error_WithCause tests the error interface implementation (with original error)
func TestLayeredError_Error_WithCause(t *testing.T) {
	err := ErrSourceUnreadable.Wrap(errors.New("permission denied"))

	expected := "configuration source unreadable: permission denied"
	if err.Error() != expected {
		t.Errorf("expected '%s', got %s", expected, err.Error())
	}
}

// TestLayeredError_WithMsgf Test formatted dynamic messages
func TestLayeredError_WithMsgf(t *testing.T) {
	modified := ErrDurationFormat.WithMsgf("malformed duration [%s]", "banana")

	if modified.Message() != "malformed duration [banana]" {
		t.Errorf("unexpected message %s", modified.Message())
	}
	if ErrDurationFormat.Message() != "malformed duration" {
		t.Errorf("original message should not change")
	}
}

// TestLayeredError_WithFields rejected fields are listed in name order
func TestLayeredError_WithFields(t *testing.T) {
	modified := ErrInvalidAppender.WithFields(map[string]string{
		"file":  "cannot be blank",
		"class": "must be a valid value",
	})

	expected := "invalid appender: class: must be a valid value; file: cannot be blank"
	if modified.Message() != expected {
		t.Errorf("expected '%s', got '%s'", expected, modified.Message())
	}
	if got := modified.Fields(); len(got) != 2 || got[0] != "class" || got[1] != "file" {
		t.Errorf("unexpected fields %v", got)
	}
	if modified.Reason("file") != "cannot be blank" {
		t.Errorf("unexpected reason %q", modified.Reason("file"))
	}
	if len(ErrInvalidAppender.Fields()) != 0 {
		t.Errorf("original fields should be empty")
	}

	unchanged := ErrInvalidAppender.WithFields(nil)
	if unchanged.Message() != ErrInvalidAppender.Message() {
		t.Errorf("no fields should keep the message, got %s", unchanged.Message())
	}
}

// TestLayeredError_Wrap test wrapping original error
func TestLayeredError_Wrap(t *testing.T) {
	cause := errors.New("no such file")
	wrapped := ErrSourceUnreadable.Wrap(cause)

	if errors.Unwrap(wrapped) != cause {
		t.Errorf("Unwrap should return cause")
	}
	if ErrSourceUnreadable.Wrap(nil) != ErrSourceUnreadable {
		t.Errorf("wrapping nil should return original error")
	}

	f := ErrMalformedConfig.Wrapf(cause, "reading [%s]", "logback.xml")
	if f.Message() != "reading [logback.xml]" || errors.Unwrap(f) != cause {
		t.Errorf("unexpected Wrapf result %s", f.String())
	}
}

// TestLayeredError_Is tests support for errors.Is() through fmt wrapping
func TestLayeredError_Is(t *testing.T) {
	err := ErrStackMismatch.WithMsg("popped string, expected *logger.Context")
	wrapped := fmt.Errorf("end of [configuration]: %w", err)

	if !errors.Is(wrapped, ErrStackMismatch) {
		t.Errorf("should match by code")
	}
	if errors.Is(wrapped, ErrStackEmpty) {
		t.Errorf("different codes must not match")
	}

	cause := errors.New("io")
	if !errors.Is(ErrSourceUnreadable.Wrap(cause), cause) {
		t.Errorf("should match original error in chain")
	}
}

// TestLayeredError_String test String() method
func TestLayeredError_String(t *testing.T) {
	expected := "[200202 error.logconf.stack_mismatch] unexpected object on top of interpretation stack"
	if ErrStackMismatch.String() != expected {
		t.Errorf("expected '%s', got '%s'", expected, ErrStackMismatch.String())
	}

	withCause := ErrStackEmpty.Wrap(errors.New("pop"))
	expected = "[200201 error.logconf.stack_empty] interpretation stack is empty: pop"
	if withCause.String() != expected {
		t.Errorf("expected '%s', got '%s'", expected, withCause.String())
	}
}

// TestLayeredError_ImmutableOriginal test original instance immutability
func TestLayeredError_ImmutableOriginal(t *testing.T) {
	original := New(9902, "error.logconf.probe", "probe")

	_ = original.WithMsg("other")
	_ = original.WithFields(map[string]string{"key": "value"})
	_ = original.Wrap(errors.New("cause"))

	if original.Message() != "probe" || len(original.Fields()) != 0 || errors.Unwrap(original) != nil {
		t.Errorf("original changed: %s", original.String())
	}
}
