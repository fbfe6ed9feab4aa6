// Package ratelimit provides client-side admission control for calls against
// an external quota, such as the per-key request limits published by an HTTP
// API.
//
// A WindowLimiter enforces one fixed-window quota (N calls per T). A
// MultiLimiter enforces several windows at once (e.g. a per-second and a
// per-two-minute limit) and admits a call only when every window agrees.
//
// This is a single-process, in-memory gate intended for many goroutines
// sharing one process's rate budget. It does not coordinate across processes,
// persist window state across restarts, retry on server-side throttling
// signals, or perform any HTTP transport itself - callers wrap each outbound
// request in Call and interpret its failures themselves.
package ratelimit
