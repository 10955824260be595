package exitcode

// Process exit codes. A completed upsert run exits Success even when some
// batches errored; the summary carries the error count.
const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	CopyError       = 4
	InternalError   = 5
)
