// Package progress implements the progress dashboard pipeline: fetching
// per-value activity aggregates through a two-tier cache, scoring how well
// time spent matches stated importance, and the dashboard state machine
// that ties values, timeframe and aggregates together.
//
// The same Fetcher serves the terminal dashboard (backed by the REST
// client) and the server's /progress endpoint (backed by the services).
package progress
