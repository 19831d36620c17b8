// Package linkcheck issues the HEAD requests of a scan: the node existence
// probe (Prober) and the bounded concurrent broken link check (Verifier).
//
// Both share one *http.Client created by NewClient, which follows
// redirects and applies a per-request timeout.
package linkcheck
