package dryrun

import (
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
)

// DryRunTracker writes tracked events to the process log. It is used when no Sentry DSN is configured.
type DryRunTracker struct{}

var _ apptracker.AppTracker = (*DryRunTracker)(nil)

func (d *DryRunTracker) CaptureMessage(message string) {
	log.WithField("tracker", "dryrun").Warn(message)
}

func (d *DryRunTracker) CaptureException(exception error) {
	log.WithField("tracker", "dryrun").Error(exception)
}

func (d *DryRunTracker) CaptureExceptionWithTags(exception error, tags map[string]string) {
	entry := log.WithField("tracker", "dryrun")
	for k, v := range tags {
		entry = entry.WithField(k, v)
	}
	entry.Error(exception)
}
