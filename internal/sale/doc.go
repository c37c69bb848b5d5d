// Package sale holds the domain types shared by every other package: the
// pending sale intent, its line items, the remote confirmation payload and
// the error taxonomy.
//
// This package imports nothing internal. Store, engine, checkout and remote
// all depend on it, never the other way round.
//
// Key constraints:
//   - Money and quantities are decimal.Decimal, never float64
//   - LocalID is assigned once at enqueue time and never reused
//   - RemoteID is non-empty if and only if Status is StatusSynced
//   - Items are immutable once the intent is written
package sale
