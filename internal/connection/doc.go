// Package connection implements the real-time connection manager.
//
// The connection manager:
//   - Maintains one WebSocket connection per named endpoint (chat,
//     notifications, presence, ...)
//   - Sends a heartbeat ping frame on every open connection
//   - Handles abnormal closures with exponential backoff, re-resolving the
//     auth token before each retry, up to a configurable attempt cap
//   - Routes inbound frames and status transitions to the event dispatcher
package connection
