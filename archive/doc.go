/*
Package archive persists verified fragments in a content-addressed key-value
namespace.

Records are keyed by a digest of the fragment identity (slot, kind, index)
only, so fetching the same logical fragment again overwrites its entry instead
of duplicating it. Records are stored as JSON under the "archived_fragments"
namespace of the node datastore. A Pruner optionally removes records older
than a retention period.
*/
package archive
