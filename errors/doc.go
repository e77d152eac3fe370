// Package errors provides the structured error type used across mainkit.
// Every failure surfaced by the bootstrapper is an AppError carrying a
// machine-readable code, the original cause, and the process exit status the
// CLI should terminate with.
package errors
