// Package tracing wraps OpenTelemetry so submission and monitoring code can
// start and end spans without importing the SDK directly. Instrumentation is
// kept in a separate package so that applications which do not require
// tracing can exclude it from their build.
package tracing
