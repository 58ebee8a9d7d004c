// Package database is the PostgreSQL persistence gateway. Repositories
// implement the domain port interfaces with pgx; multi-step operations
// (timer start/stop, archiving) run as single transactions so their
// precondition checks and writes cannot interleave with concurrent callers.
package database
