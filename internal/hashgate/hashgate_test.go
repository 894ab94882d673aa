package hashgate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHashFileMissingIsEmpty(t *testing.T) {
	assert.Equal(t, "", HashFile(filepath.Join(t.TempDir(), "missing.xml")))
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menus.xml")
	writeFile(t, path, "<menus/>")

	assert.Equal(t, HashFile(path), HashFile(path))
	assert.NotEmpty(t, HashFile(path))
}

func TestHashFileChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menus.xml")
	writeFile(t, path, "<menus/>")
	h1 := HashFile(path)

	writeFile(t, path, "<menus><menu name=\"x\"/></menus>")
	h2 := HashFile(path)

	assert.NotEqual(t, h1, h2)
}

func TestNeedsRebuildNoStoredHashes(t *testing.T) {
	assert.True(t, NeedsRebuild(Fingerprint{}, Fingerprint{"menus.xml": "a"}, nil))
}

func TestNeedsRebuildUnchanged(t *testing.T) {
	fp := Fingerprint{"menus.xml": "a", "widgets.xml": "b"}
	assert.False(t, NeedsRebuild(fp, fp, nil))
}

func TestNeedsRebuildOnChangedEntry(t *testing.T) {
	stored := Fingerprint{"menus.xml": "a"}
	current := Fingerprint{"menus.xml": "b"}
	assert.True(t, NeedsRebuild(stored, current, nil))
}

func TestNeedsRebuildMissingIncludesFile(t *testing.T) {
	stored := Fingerprint{"menus.xml": "a"}
	current := Fingerprint{"menus.xml": "a"}
	assert.True(t, NeedsRebuild(stored, current, []string{t.TempDir()}))
}

func TestNeedsRebuildIncludesHashMatches(t *testing.T) {
	outDir := t.TempDir()
	includesPath := filepath.Join(outDir, IncludesFileName)
	writeFile(t, includesPath, "<includes/>")

	stored := Fingerprint{"menus.xml": "a", "includes:" + outDir: HashFile(includesPath)}
	current := Fingerprint{"menus.xml": "a"}
	assert.False(t, NeedsRebuild(stored, current, []string{outDir}))
}

func TestWriteAndReadStoredRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.yml")
	fp := Fingerprint{"menus.xml": "abc", "script_version": "1.2.3"}

	require.NoError(t, WriteStored(path, fp))

	loaded := ReadStored(path)
	assert.Equal(t, fp, loaded)
}

func TestReadStoredMissingFileIsEmpty(t *testing.T) {
	loaded := ReadStored(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Empty(t, loaded)
}

func TestGenerateConfigHashesIncludesUserdataAndMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "menus.xml"), "<menus/>")
	userDataPath := filepath.Join(dir, "userdata.json")
	writeFile(t, userDataPath, "{}")

	fp := GenerateConfigHashes(dir, []string{"menus.xml", "widgets.xml"}, userDataPath, map[string]string{"script_version": "9.9.9"})

	assert.NotEmpty(t, fp["menus.xml"])
	assert.Equal(t, "", fp["widgets.xml"])
	assert.NotEmpty(t, fp["userdata"])
	assert.Equal(t, "9.9.9", fp["script_version"])
}

func TestRecordOutputsAddsIncludesEntry(t *testing.T) {
	outDir := t.TempDir()
	writeFile(t, filepath.Join(outDir, IncludesFileName), "<includes/>")

	fp := RecordOutputs(Fingerprint{"menus.xml": "a"}, []string{outDir})

	assert.Equal(t, "a", fp["menus.xml"])
	assert.NotEmpty(t, fp["includes:"+outDir])
}

func TestDiffReportsChangedAndAddedKeys(t *testing.T) {
	stored := Fingerprint{"a": "1", "b": "2"}
	current := Fingerprint{"a": "1", "b": "3", "c": "4"}
	assert.Equal(t, []string{"b", "c"}, Diff(stored, current))
}
