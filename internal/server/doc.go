// Package server provides the network front ends: the UDP listener
// that ingests the gateway feed and the HTTP server that exposes
// health, speaker and metrics endpoints.
package server
