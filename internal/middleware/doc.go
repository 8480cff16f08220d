// Package middleware provides HTTP middleware for the FrameFolio server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with job ids collapsed to {id}
//   - Filtering of health probes and job status polls from the access log
package middleware
