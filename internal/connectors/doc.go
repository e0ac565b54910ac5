// Package connectors contains Source implementations. Each connector
// fetches raw documents from one kind of document tree; the filesystem
// connector is the only built-in, watching a local markdown vault.
package connectors
