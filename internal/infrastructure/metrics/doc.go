// Package metrics records auth activity counters in InfluxDB.
//
// Writes are batched and non-blocking so a slow or unreachable metrics
// backend never adds latency to a login or refresh. The sink is optional:
// a nil *Client drops every write, letting callers record metrics
// unconditionally.
package metrics
