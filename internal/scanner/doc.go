// Package scanner walks a repository's file tree and classifies each file
// against the stored fingerprint ledger.
//
// The scanner applies include/exclude glob patterns, per-extension include
// flags, and skips files whose trimmed content is empty. An empty file is
// treated as "content removed", so a previously indexed file that becomes
// empty classifies as deleted on the next pass.
//
// Classification follows the fingerprint rule: a file is unchanged only
// when both its stored content hash and stored mtime match the current
// values. Any divergence, or the absence of a stored entry, schedules the
// file for re-chunking. Stored entries not observed on disk classify as
// deleted.
package scanner
