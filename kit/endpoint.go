// Package kit holds small transport-neutral building blocks shared by the
// HTTP and MCP surfaces: the Endpoint shape, request context helpers, and
// MCP tool registration.
package kit

import "context"

// Endpoint is a transport-neutral request handler. The HTTP and MCP layers
// decode their own wire formats and hand the typed request to an Endpoint.
type Endpoint func(ctx context.Context, request any) (any, error)
