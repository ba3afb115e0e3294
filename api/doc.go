// Package api groups the HTTP surface of the QuizFlow service.
//
// # API Overview
//
// QuizFlow exposes a small REST API:
//   - POST /quiz    — submit a quiz URL for background solving
//   - GET  /health  — liveness check with configuration flags
//   - GET  /ready   — readiness check probing the LLM provider
//   - GET  /metrics — Prometheus metrics
//   - GET  /        — service description and endpoint list
//
// # Authentication
//
// POST /quiz authenticates with the student credentials carried in the
// request body (email + secret). Comparison is constant-time and the
// submitted values are never logged or echoed back.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// Handlers live in the handlers subpackage; wire types shared with the
// solver pipeline live in the top-level types package.
package api
