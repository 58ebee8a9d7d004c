// Package server implements the HTTP API using the Echo framework.
//
// Routes: auth (session login), jobs (CRUD + status), timers (start/stop),
// archive (snapshot/list/stats), users, and the /ws event stream.
// Handlers split by domain: handlers_auth.go, handlers_jobs.go,
// handlers_timers.go, handlers_archive.go, handlers_ws.go.
package server
