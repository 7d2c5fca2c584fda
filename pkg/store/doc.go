// Package store persists principal records, their string attributes, and
// the decision audit log in SQLite.
//
// The attribute tables are the storage behind cross-realm authorization:
// administrators attach xr:-prefixed keys to a trust edge's krbtgt
// principal, and the decision engine reads the current key set on every
// request. Reads always hit the database so administrative changes take
// effect without restarting the daemon; WAL mode lets the CLI write while
// the daemon reads.
package store
