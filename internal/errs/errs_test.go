package errs

import (
	"errors"
	"log/slog"
	"testing"
)

var errRoot = errors.New("root cause")

func TestWrapPreservesChain(t *testing.T) {
	err := Wrapf(Wrap(errRoot, "load action"), "bulk apply %s", "batch-1")
	if !errors.Is(err, errRoot) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if err.Error() != "bulk apply batch-1: load action: root cause" {
		t.Fatalf("Error() = %q", err.Error())
	}

	chain := ErrorChainStrings(err)
	if len(chain) != 3 || chain[2] != "root cause" {
		t.Fatalf("ErrorChainStrings() = %#v", chain)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil || WithStack(nil) != nil {
		t.Fatalf("nil input must stay nil")
	}
}

func TestIsAny(t *testing.T) {
	other := errors.New("other")
	if !IsAny(Wrap(errRoot, "ctx"), other, errRoot) {
		t.Fatalf("IsAny() = false, want true")
	}
	if IsAny(other, errRoot) {
		t.Fatalf("IsAny() = true, want false")
	}
	if IsAny(nil, errRoot) {
		t.Fatalf("IsAny(nil) = true, want false")
	}
}

func TestWithStackOnlyOnce(t *testing.T) {
	first := WithStack(errRoot)
	second := WithStack(Wrap(first, "outer"))

	var se *StackError
	if !errors.As(second, &se) {
		t.Fatalf("expected StackError in chain")
	}
	if len(se.Stack()) == 0 {
		t.Fatalf("expected captured stack")
	}

	value := Loggable(first).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v", value.Kind())
	}
	found := false
	for _, attr := range value.Group() {
		if attr.Key == "stack" {
			found = true
		}
	}
	if !found {
		t.Fatalf("LogValue() missing stack attr")
	}
}
