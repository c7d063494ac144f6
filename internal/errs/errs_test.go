package errs

import (
	"errors"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func TestWrapPreservesChain(t *testing.T) {
	wrapped := Wrap(errSentinel, "outer")
	if !errors.Is(wrapped, errSentinel) {
		t.Fatalf("errors.Is lost the sentinel through Wrap: %v", wrapped)
	}
	if wrapped.Error() != "outer: sentinel" {
		t.Fatalf("Error() = %q", wrapped.Error())
	}
	if Wrap(nil, "outer") != nil {
		t.Fatal("Wrap(nil) must return nil")
	}
}

func TestWrapfPreservesChain(t *testing.T) {
	wrapped := Wrapf(errSentinel, "task %d", 7)
	if !errors.Is(wrapped, errSentinel) {
		t.Fatalf("errors.Is lost the sentinel through Wrapf: %v", wrapped)
	}
	if wrapped.Error() != "task 7: sentinel" {
		t.Fatalf("Error() = %q", wrapped.Error())
	}
	if Wrapf(nil, "task %d", 7) != nil {
		t.Fatal("Wrapf(nil) must return nil")
	}
}

func TestWithStack(t *testing.T) {
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) must return nil")
	}

	stacked := WithStack(errSentinel)
	var se *StackError
	if !errors.As(stacked, &se) {
		t.Fatalf("no StackError in chain: %v", stacked)
	}
	if len(se.Stack()) == 0 {
		t.Fatal("stack not captured")
	}
	if !errors.Is(stacked, errSentinel) {
		t.Fatalf("errors.Is lost the sentinel through WithStack: %v", stacked)
	}

	// A second capture on an already stacked chain is a no-op, even with
	// wrapping in between.
	again := WithStack(Wrap(stacked, "outer"))
	var se2 *StackError
	if !errors.As(again, &se2) || se2 != se {
		t.Fatalf("stack captured twice: %v", again)
	}
}

func TestLoggableIncludesChainAndStack(t *testing.T) {
	err := Wrap(WithStack(errSentinel), "outer")

	value := Loggable(err).LogValue()
	attrs := value.Group()

	var sawMessage, sawChain, sawStack bool
	for _, attr := range attrs {
		switch attr.Key {
		case "message":
			sawMessage = attr.Value.String() == "outer: sentinel"
		case "chain":
			sawChain = true
		case "stack":
			sawStack = strings.Contains(attr.Value.String(), "goroutine")
		}
	}
	if !sawMessage || !sawChain || !sawStack {
		t.Fatalf("log value misses fields: message=%v chain=%v stack=%v", sawMessage, sawChain, sawStack)
	}
}

func TestErrorChainStrings(t *testing.T) {
	err := Wrap(Wrap(errSentinel, "inner"), "outer")
	chain := ErrorChainStrings(err)
	want := []string{"outer: inner: sentinel", "inner: sentinel", "sentinel"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}
}
