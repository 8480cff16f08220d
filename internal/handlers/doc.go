// Package handlers provides HTTP request handlers for the FrameFolio API.
//
// It includes handlers for:
//   - Multipart uploads that start ingest jobs
//   - Job status polling and listing
//   - Duplicate and positioning decisions
//   - Library folder registration and reconciliation
//   - Health, readiness, version and Prometheus metrics
package handlers
