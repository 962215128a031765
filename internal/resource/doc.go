// Package resource provides a process-wide controller for memory,
// background concurrency and IO bandwidth.
//
// Foreground queries are never throttled. Background work such as
// snapshot writes acquires a job slot and streams through rate-limited
// readers and writers so that persistence cannot starve queries.
package resource
