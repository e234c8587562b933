// Package apptracker reports operational failures that need a human, such as stranded mints, to an error tracker.
package apptracker

type AppTracker interface {
	CaptureMessage(message string)
	CaptureException(exception error)
	// CaptureExceptionWithTags attaches searchable tags, e.g. the owner and transaction hash of a stranded mint.
	CaptureExceptionWithTags(exception error, tags map[string]string)
}
