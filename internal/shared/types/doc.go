// Package types holds the cross-cutting data model shared by the platform
// adapters, the overlay stack, and the URL synchronization engine: platform
// identity and capabilities, overlay entries, and share payloads.
package types
