// Package domain holds the core model types, the persistence port
// interfaces, and the application service contract. It has no dependencies
// on infrastructure packages; adapters implement its interfaces.
package domain
