package utils

import (
	"net/http"
)

// HTTPClient is the subset of *http.Client used by the ledger RPC transport. Requests carry their own context so a
// ledger call is bounded by the caller's deadline.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)
