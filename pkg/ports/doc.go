/*
Package ports defines the boundary interfaces of the Parley engine.

The engine core depends only on these contracts; adapters (memory, Redis,
HTTP, MCP, scripted models) implement them. This keeps the orchestration
logic embeddable in any transport.
*/
package ports
