package logger

// NopLogger discards everything. Used in tests and as a safe default.
type NopLogger struct{}

// NewNop returns a logger that discards all output.
func NewNop() Logger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...Field) {}
func (*NopLogger) Info(string, ...Field)  {}
func (*NopLogger) Warn(string, ...Field)  {}
func (*NopLogger) Error(string, ...Field) {}

// With returns the same no-op logger.
func (n *NopLogger) With(...Field) Logger { return n }

// Sync is a no-op.
func (*NopLogger) Sync() error { return nil }
