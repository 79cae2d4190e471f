// Package indicator holds the streaming technical indicators fed by market
// events. None of them synchronize internally; callers keep one writer per
// instrument. An indicator without enough samples reports ok=false from
// Value.
package indicator
