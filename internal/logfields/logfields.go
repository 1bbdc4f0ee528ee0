package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPath       = "path"
	KeyRoot       = "root"
	KeyFiles      = "files"
	KeyChanged    = "changed"
	KeyFailed     = "failed"
	KeySkipped    = "skipped"
	KeyDurationMS = "duration_ms"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Root(r string) slog.Attr            { return slog.String(KeyRoot, r) }
func Files(n int) slog.Attr              { return slog.Int(KeyFiles, n) }
func Changed(n int) slog.Attr            { return slog.Int(KeyChanged, n) }
func Failed(n int) slog.Attr             { return slog.Int(KeyFailed, n) }
func Skipped(n int) slog.Attr            { return slog.Int(KeySkipped, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Subject(s string) slog.Attr         { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
