// Package correspond implements the concatenation stage: merging the per-pair
// match artifacts produced by the matcher into a single correspondence bundle
// for the optimizer.
package correspond

import (
	"encoding/json"
	"os"

	"montage/internal/fileutil"
	"montage/internal/services"
)

// Concat merges every *.json match artifact found in matchDir into a single
// JSON array written at outFile, returning the number of entries. Files are
// enumerated in sorted name order so the bundle content does not depend on
// filesystem enumeration order. A missing or empty match directory produces a
// valid empty bundle.
func Concat(matchDir, outFile string) (int, error) {
	paths, err := fileutil.ListJSONFiles(matchDir)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "concat", "scan", "", err)
	}

	entries := make([]json.RawMessage, 0, len(paths))
	for _, path := range paths {
		fileEntries, err := readEntries(path)
		if err != nil {
			return 0, services.Wrap(services.ErrValidation, "concat", "read", path, err)
		}
		entries = append(entries, fileEntries...)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "concat", "encode", "", err)
	}
	data = append(data, '\n')

	if err := fileutil.WriteFileAtomic(outFile, data, 0o644); err != nil {
		return 0, services.Wrap(services.ErrValidation, "concat", "write", "", err)
	}
	return len(entries), nil
}

// readEntries accepts either a JSON array of match entries or a single match
// object, which some matcher versions emit for lone pairs.
func readEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}
