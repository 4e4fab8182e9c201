package stream

import (
	"errors"
	"testing"

	"github.com/ambercast/relay/errcode"
)

func errCodeOf(t *testing.T, err error) errcode.ErrorCode {
	t.Helper()
	var coder errcode.ErrorCoder
	if !errors.As(err, &coder) {
		t.Fatalf("error %v does not carry an ErrorCode", err)
	}
	return coder.ErrorCode()
}

func TestIdleTextFrameWithoutAttachmentsDispatchesImmediately(t *testing.T) {
	r := New()

	ready, violation, err := r.Feed(Text, []byte("0"))
	if err != nil || violation != nil {
		t.Fatalf("unexpected error/violation: %v / %v", err, violation)
	}
	if ready == nil {
		t.Fatal("expected immediate dispatch")
	}
	if r.Awaiting() {
		t.Fatal("expected Idle state after a non-binary frame")
	}
}

func TestBinaryReassembly(t *testing.T) {
	r := New()

	ready, violation, err := r.Feed(Text, []byte(`51-[1]`))
	if err != nil || violation != nil {
		t.Fatalf("unexpected error/violation: %v / %v", err, violation)
	}
	if ready != nil {
		t.Fatal("expected no dispatch before attachments arrive")
	}
	if !r.Awaiting() {
		t.Fatal("expected Awaiting state")
	}

	ready, violation, err = r.Feed(Binary, []byte{0xde, 0xad})
	if err != nil || violation != nil {
		t.Fatalf("unexpected error/violation: %v / %v", err, violation)
	}
	if ready == nil {
		t.Fatal("expected dispatch once all attachments arrived")
	}
	if r.Awaiting() {
		t.Fatal("expected Idle state after final attachment")
	}
}

func TestBinaryReassemblyTwoAttachments(t *testing.T) {
	r := New()

	if _, _, err := r.Feed(Text, []byte(`52-[{"_placeholder":true,"num":1},{"_placeholder":true,"num":2}]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ready, _, err := r.Feed(Binary, []byte{0x01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ready != nil {
		t.Fatal("expected no dispatch after only the first of two attachments")
	}

	ready, _, err = r.Feed(Binary, []byte{0x02})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ready == nil {
		t.Fatal("expected dispatch exactly once the second attachment arrived")
	}

	arr, ok := ready.Payload.([]interface{})
	if !ok || len(arr) != 2 {
		t.Fatalf("unexpected injected payload: %+v", ready.Payload)
	}
	if b, ok := arr[0].([]byte); !ok || b[0] != 0x01 {
		t.Fatalf("first placeholder not replaced in order: %+v", arr[0])
	}
	if b, ok := arr[1].([]byte); !ok || b[0] != 0x02 {
		t.Fatalf("second placeholder not replaced in order: %+v", arr[1])
	}
}

func TestTextFrameWhileAwaitingIsAViolationAndDiscardsBuffered(t *testing.T) {
	r := New()

	if _, _, err := r.Feed(Text, []byte(`51-[1]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Awaiting() {
		t.Fatal("expected Awaiting state")
	}

	ready, violation, err := r.Feed(Text, []byte("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violation == nil {
		t.Fatal("expected a protocol violation")
	}
	if errCodeOf(t, violation) != errcode.ErrCodeUnexpectedTextFrame {
		t.Fatalf("unexpected violation code: %v", violation)
	}
	if ready == nil {
		t.Fatal("expected the fresh text frame to still be processed")
	}
	if r.Awaiting() {
		t.Fatal("expected the stale buffered packet to be discarded")
	}
}

func TestUnexpectedBinaryFrameWhileIdle(t *testing.T) {
	r := New()

	_, violation, err := r.Feed(Binary, []byte{0x01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violation == nil {
		t.Fatal("expected a protocol violation")
	}
}
