// Package backend provides an HTTP client for the task backend's REST API.
//
// # Overview
//
// The client covers the task list and the four timer endpoints a timer
// client needs. It handles authentication, JSON decoding and conversion of
// the wire payloads into the timer store's snapshot types.
//
// # Architecture
//
//   - client.go: HTTP client, request construction, TimerAPI and TaskLister
//   - types.go: wire types, board columns and conversions into package timer
//   - errors.go: APIError, ErrNoToken and user-facing messages
//
// # API Endpoints
//
//   - GET  /tasks/alltasks?status=&assignee=&priority=  -> {tasks: [...]}
//   - POST /tasks/{id}/timer/start                      -> {task: {...}}
//   - POST /tasks/{id}/timer/pause                      -> {task: {...}}
//   - POST /tasks/{id}/timer/resume                     -> {task: {...}}
//   - GET  /tasks/{id}/timer/status                     -> {timer: {...}}
//
// Paths are joined onto api_url, so a base of http://host:5000/api yields
// http://host:5000/api/tasks/alltasks.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Send Authorization: Bearer <token>
//   - Send a fresh X-Request-ID so server logs can be correlated
//   - Have a 5-second timeout
//
// # Error Handling
//
// Any status of 400 or above, and any transport failure, is returned as an
// *APIError. Its Message is the backend's body.message, then body.error,
// then a per-operation fallback such as "Failed to start timer". Message(err)
// extracts that text for display. A missing token yields ErrNoToken before
// any request is sent.
//
// # Timer Fields
//
// Durations are milliseconds. totalTrackedTime counts closed sessions,
// currentTotalTime (totalTime on the status endpoint) includes the open
// session. Either may be fractional or absent; Millis tolerates both.
package backend
