// Package rbyd decodes single blocks of the rbyd format: append-only,
// checksum-protected logs with an embedded red-black search tree.
//
// Fetch replays a block's log to its most recent valid commit and never
// fails on corrupt input; a block without a valid commit decodes as an
// unreadable Rbyd and traversal above this layer carries on around it.
// LookupNext performs the in-block red-black descent, and FetchSet
// resolves a redundant (mirrored) block set to its winning copy.
//
// Everything here is a fresh derivation from raw bytes per call; no
// state persists between queries.
package rbyd
