// Package services contains the core application logic, wired together
// through the driven ports and exposed through the driving ports.
//
// Services:
//   - WatcherService: vault lifecycle, full sync and incremental re-indexing
//   - QueryService: similarity queries against the vector index
package services
