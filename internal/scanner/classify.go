package scanner

import (
	"sort"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// Classify diffs one scan pass against the repository's stored
// fingerprints. A file is unchanged only when both the stored hash and
// stored mtime match the current values; any divergence or a missing
// entry schedules re-chunking. Stored files not observed on disk come
// back as deleted, ordered by path for determinism.
func Classify(scanned []ScannedFile, stored map[string]types.FileFingerprint) []types.FileChange {
	changes := make([]types.FileChange, 0, len(scanned))
	seen := make(map[string]bool, len(scanned))

	for _, f := range scanned {
		seen[f.FileID] = true
		change := types.FileChange{
			FileID:      f.FileID,
			RelPath:     f.RelPath,
			AbsPath:     f.AbsPath,
			ContentHash: f.ContentHash,
			ModTime:     f.ModTime,
		}

		fp, ok := stored[f.FileID]
		switch {
		case !ok:
			change.Kind = types.ChangeNew
		case fp.ContentHash == f.ContentHash && fp.ModTime.Equal(f.ModTime):
			change.Kind = types.ChangeUnchanged
		default:
			change.Kind = types.ChangeModified
		}
		changes = append(changes, change)
	}

	var deleted []types.FileChange
	for fileID, fp := range stored {
		if seen[fileID] {
			continue
		}
		deleted = append(deleted, types.FileChange{
			Kind:    types.ChangeDeleted,
			FileID:  fileID,
			RelPath: fp.FilePath,
		})
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].RelPath < deleted[j].RelPath })

	return append(changes, deleted...)
}

// HasDeltas reports whether any change in the set requires pipeline work.
func HasDeltas(changes []types.FileChange) bool {
	for _, c := range changes {
		if c.Kind != types.ChangeUnchanged {
			return true
		}
	}
	return false
}
