// Package httpx holds the HTTP plumbing shared by every platform connector:
// typed errors, status-code mapping, opt-in retry with backoff, rate-limit
// header extraction, and log redaction helpers.
package httpx
