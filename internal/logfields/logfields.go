package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyAttempt    = "attempt"
	KeyMaxAttempt = "max_attempts"
	KeyExitCode   = "exit_code"
	KeyCommand    = "command"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyRevision   = "revision"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func MaxAttempts(n int) slog.Attr      { return slog.Int(KeyMaxAttempt, n) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func Command(line string) slog.Attr    { return slog.String(KeyCommand, line) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Revision(rev string) slog.Attr    { return slog.String(KeyRevision, rev) }
func Status(s string) slog.Attr        { return slog.String(KeyStatus, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
