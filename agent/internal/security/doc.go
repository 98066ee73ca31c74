// Package security inspects the TLS certificate of the collector endpoint.
// An expiring certificate is the most common reason uploads start failing in
// the field, so the agent's -check mode reports the leaf certificate's status
// and days until expiry alongside the reachability probe.
package security
