package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPipeline   = "pipeline"
	KeyModule     = "module"
	KeyModulePath = "module_path"
	KeyDocument   = "document"
	KeySource     = "source"
	KeyDocuments  = "documents"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Pipeline(name string) slog.Attr  { return slog.String(KeyPipeline, name) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func ModulePath(p string) slog.Attr   { return slog.String(KeyModulePath, p) }
func Document(id string) slog.Attr    { return slog.String(KeyDocument, id) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Documents(n int) slog.Attr       { return slog.Int(KeyDocuments, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
