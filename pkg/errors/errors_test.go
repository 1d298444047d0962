package errors

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var errSentinel = stderrors.New("sentinel")

func TestSurfaceErrorString(t *testing.T) {
	err := New("surface.Start", KindTransition, 7, errSentinel)
	got := err.Error()
	want := "surface.Start [transition] surface=7: sentinel"
	if got != want {
		t.Errorf("SurfaceError.Error() = %q, want %q", got, want)
	}
}

func TestSurfaceErrorWithoutSurface(t *testing.T) {
	err := New("config.Resolve", KindConfig, NoSurface, errSentinel)
	got := err.Error()
	if strings.Contains(got, "surface=") {
		t.Errorf("error string %q should not contain a surface id", got)
	}
}

func TestSurfaceErrorUnwrap(t *testing.T) {
	var err error = New("scheduler.RegisterSurface", KindRegistration, 42, errSentinel)
	if !stderrors.Is(err, errSentinel) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	var se *SurfaceError
	if !stderrors.As(err, &se) {
		t.Fatal("errors.As should find *SurfaceError")
	}
	if se.SurfaceID != 42 {
		t.Errorf("SurfaceID = %d, want 42", se.SurfaceID)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindTransition, "transition"},
		{KindRegistration, "registration"},
		{KindTeardown, "teardown"},
		{KindRender, "render"},
		{KindPanic, "panic"},
		{KindConfig, "config"},
		{KindCodec, "codec"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "boom", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: boom"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "scheduler.Tick"
	if got, want := err.Error(), "panic in scheduler.Tick: boom"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *SurfaceError
	handler := &testHandler{onError: func(err *SurfaceError) { captured = err }}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&SurfaceError{Op: "test.op", Kind: KindRender, SurfaceID: 3, Err: errSentinel})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportNil(t *testing.T) {
	called := false
	handler := &testHandler{onError: func(*SurfaceError) { called = true }}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(nil)
	if called {
		t.Error("Report(nil) should not reach the handler")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	handler := &testHandler{onPanic: func(err *PanicError) { captured = err }}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
	if captured.StackTrace == "" {
		t.Error("expected a stack trace")
	}
	if !strings.Contains(captured.StackTrace, "TestRecover") {
		t.Errorf("stack trace should include the panicking test:\n%s", captured.StackTrace)
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestRecoverWithCallback(t *testing.T) {
	oldHandler := DefaultHandler
	SetHandler(&testHandler{})
	defer SetHandler(oldHandler)

	var got any
	func() {
		defer RecoverWithCallback("test.callback", func(r any) { got = r })
		panic(17)
	}()
	if got != 17 {
		t.Errorf("callback value = %v, want 17", got)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandlerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	h := &LogHandler{Verbose: true}
	h.HandleError(&SurfaceError{
		Op:         "scheduler.Tick",
		Kind:       KindTeardown,
		SurfaceID:  9,
		Err:        errSentinel,
		StackTrace: "frame",
	})

	out := buf.String()
	for _, want := range []string{"op=scheduler.Tick", "kind=teardown", "surface=9", "stack=frame"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}
}

type testHandler struct {
	onError func(*SurfaceError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *SurfaceError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
