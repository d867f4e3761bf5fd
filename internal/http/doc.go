// Package http exposes the room tracker over JSON HTTP and websockets.
//
// Public endpoints:
//   - GET /api/rooms, GET /api/rooms/{id}, GET /api/rooms/{id}/stats: room list
//     ordered by room number, room detail with valid visits, per-room stats.
//   - POST /api/rooms/{id}/occupy|reserve|free|cancel: state machine operations.
//     Body: {"team_id"}. Response: {"room": roomDTO}.
//   - GET /api/rooms/subscribe: websocket stream; every message is a
//     {"rooms": [...]} snapshot and the first is sent on attach.
//   - GET /api/teams, POST /api/teams: active teams and self-service signup.
//   - GET /api/history: ledger, newest first. Query: team_id, room_id, action, limit.
//   - GET /api/stats, GET /api/stats/daily/{date}: live aggregate and archived
//     daily rollups (date is YYYY-MM-DD).
//   - GET /api/cron/sweep: on-demand expiry sweep, rate limited.
//
// Administrative endpoints live under /api/admin and require HTTP basic
// credentials verified by application.AdminAuthenticator.
//
// Request/response DTOs live in dto.go so handlers, the websocket stream and
// the Redis mirror share one wire format.
package http
