// Package retry wraps fallible operations with exponential backoff, jitter,
// and a hard attempt ceiling.
package retry
