// Package gateway wires the meal-gateway components together and manages
// the HTTP server lifecycle.
package gateway
