package correspond

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeMatch(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func loadBundle(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var bundle []map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		t.Fatalf("bundle is not a JSON array: %v (%q)", err, data)
	}
	return bundle
}

func TestConcatMergesAllEntries(t *testing.T) {
	dir := t.TempDir()
	matchDir := filepath.Join(dir, "sift_matches")
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		t.Fatal(err)
	}

	writeMatch(t, matchDir, "t0_t1.json", `[{"pair":"t0-t1","points":3}]`)
	writeMatch(t, matchDir, "t1_t2.json", `[{"pair":"t1-t2","points":5},{"pair":"t1-t2b","points":1}]`)

	outFile := filepath.Join(dir, "all_correspondent.json")
	count, err := Concat(matchDir, outFile)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}

	bundle := loadBundle(t, outFile)
	if len(bundle) != 3 {
		t.Fatalf("bundle has %d entries, want 3", len(bundle))
	}
}

func TestConcatDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	matchDir := filepath.Join(dir, "matches")
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Creation order differs from name order; output must follow name order.
	writeMatch(t, matchDir, "zz.json", `[{"pair":"z"}]`)
	writeMatch(t, matchDir, "aa.json", `[{"pair":"a"}]`)

	outFile := filepath.Join(dir, "bundle.json")
	if _, err := Concat(matchDir, outFile); err != nil {
		t.Fatal(err)
	}

	bundle := loadBundle(t, outFile)
	if bundle[0]["pair"] != "a" || bundle[1]["pair"] != "z" {
		t.Fatalf("entries not in sorted file order: %v", bundle)
	}

	first, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Concat(matchDir, outFile); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("re-running concat produced different bytes")
	}
}

func TestConcatSingleObjectArtifact(t *testing.T) {
	dir := t.TempDir()
	matchDir := filepath.Join(dir, "matches")
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeMatch(t, matchDir, "only.json", `{"pair":"solo","points":7}`)

	outFile := filepath.Join(dir, "bundle.json")
	count, err := Concat(matchDir, outFile)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}
}

func TestConcatEmptyDirWritesEmptyBundle(t *testing.T) {
	dir := t.TempDir()
	matchDir := filepath.Join(dir, "matches")
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		t.Fatal(err)
	}

	outFile := filepath.Join(dir, "bundle.json")
	count, err := Concat(matchDir, outFile)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0 entries, got %d", count)
	}

	bundle := loadBundle(t, outFile)
	if len(bundle) != 0 {
		t.Fatalf("expected empty bundle, got %v", bundle)
	}
}

func TestConcatMissingDirBehavesAsEmpty(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "bundle.json")

	count, err := Concat(filepath.Join(dir, "never_created"), outFile)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0 entries, got %d", count)
	}
}

func TestConcatMalformedArtifact(t *testing.T) {
	dir := t.TempDir()
	matchDir := filepath.Join(dir, "matches")
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeMatch(t, matchDir, "bad.json", "{broken")

	if _, err := Concat(matchDir, filepath.Join(dir, "bundle.json")); err == nil {
		t.Fatal("expected error for malformed match artifact")
	}
}
