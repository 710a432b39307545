package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures JSON log output at trace level.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer

	mu *sync.Mutex
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// NewTestLogger creates a capturing logger. The global level is raised to
// trace until the test ends.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(oldLevel) })

	mu := &sync.Mutex{}
	buf := &bytes.Buffer{}
	logger := zerolog.New(lockedWriter{mu: mu, buf: buf}).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Logger()

	return &TestLogger{Logger: &logger, Buffer: buf, mu: mu}
}

// Output returns everything logged so far.
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.Buffer.String()
}

// Lines returns one entry per logged event.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.Output())
	if out == "" {
		return []string{}
	}
	return strings.Split(out, "\n")
}

// Contains reports whether the output contains substr.
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// AssertContains fails the test when the output lacks substr.
func (tl *TestLogger) AssertContains(t testing.TB, substr string) {
	t.Helper()
	if !tl.Contains(substr) {
		t.Errorf("Log output does not contain %q\nOutput:\n%s", substr, tl.Output())
	}
}

// AssertNotContains fails the test when the output contains substr.
func (tl *TestLogger) AssertNotContains(t testing.TB, substr string) {
	t.Helper()
	if tl.Contains(substr) {
		t.Errorf("Log output should not contain %q\nOutput:\n%s", substr, tl.Output())
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// DisableLoggingForTest silences the default logger until the test ends.
func DisableLoggingForTest(t testing.TB) {
	t.Helper()
	original := *Default()
	SetDefault(zerolog.Nop())
	t.Cleanup(func() { SetDefault(original) })
}

// CaptureLoggingForTest routes the default logger into a TestLogger until
// the test ends.
func CaptureLoggingForTest(t testing.TB) *TestLogger {
	t.Helper()
	original := *Default()
	tl := NewTestLogger(t)
	SetDefault(*tl.Logger)
	t.Cleanup(func() { SetDefault(original) })
	return tl
}
