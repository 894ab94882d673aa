// Package hashgate implements C6: the rebuild gate that skips a build when
// nothing that could affect its output has changed since the last run.
// Grounded on original_source/.../hashing.py, with MD5 swapped for SHA-256
// (see DESIGN.md's stdlib justification) and JSON swapped for YAML to match
// this codebase's config-file conventions.
package hashgate

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/skinshortcuts/build/internal/atomicfile"
)

// IncludesFileName is the file name C9 writes inside each configured
// output directory; exported so the include assembler and the pipeline
// agree with the hash gate on where to look for it.
const IncludesFileName = "script-skinshortcuts-includes.xml"

// Fingerprint is a named set of content hashes: one entry per config file,
// one for user data, and a handful of metadata fields (script/host
// version, skin directory).
type Fingerprint map[string]string

// HashFile returns the hex SHA-256 digest of the file at path, or "" if the
// file does not exist or cannot be read.
func HashFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashString returns the hex SHA-256 digest of value.
func HashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateConfigHashes builds the fingerprint for a build: one entry per
// config file found in shortcutsDir, one for the user data file (if
// present), and the supplied metadata fields.
func GenerateConfigHashes(shortcutsDir string, configFiles []string, userDataPath string, metadata map[string]string) Fingerprint {
	fp := Fingerprint{}
	for _, name := range configFiles {
		fp[name] = HashFile(filepath.Join(shortcutsDir, name))
	}
	if userDataPath != "" {
		fp["userdata"] = HashFile(userDataPath)
	}
	for k, v := range metadata {
		fp[k] = v
	}
	return fp
}

// ReadStored loads a previously persisted fingerprint. A missing or
// unreadable file yields an empty Fingerprint: a silent degrade to a full
// rebuild, since this cache is advisory only.
func ReadStored(path string) Fingerprint {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fingerprint{}
	}
	var fp Fingerprint
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return Fingerprint{}
	}
	return fp
}

// WriteStored persists fp to path atomically.
func WriteStored(path string, fp Fingerprint) error {
	data, err := yaml.Marshal(fp)
	if err != nil {
		return errors.Wrap(err, "encoding hash file")
	}
	return atomicfile.Write(path, data, 0o644)
}

// NeedsRebuild reports whether a build should run: true if there is no
// stored fingerprint, any configured output is missing its includes file
// or that file's hash has drifted, or any entry of current differs from
// stored.
func NeedsRebuild(stored, current Fingerprint, outputPaths []string) bool {
	if len(stored) == 0 {
		return true
	}

	for _, outPath := range outputPaths {
		includesPath := filepath.Join(outPath, IncludesFileName)
		if _, err := os.Stat(includesPath); err != nil {
			return true
		}
		key := "includes:" + outPath
		if HashFile(includesPath) != stored[key] {
			return true
		}
	}

	for key, value := range current {
		if stored[key] != value {
			return true
		}
	}

	return false
}

// recordOutputs folds an includes-file fingerprint entry per output path into fp,
// for persistence after a successful build.
func (fp Fingerprint) recordOutputs(outputPaths []string) {
	for _, outPath := range outputPaths {
		fp["includes:"+outPath] = HashFile(filepath.Join(outPath, IncludesFileName))
	}
}

// RecordOutputs returns a copy of current with an "includes:<path>" hash
// entry added for every output path, ready to persist via WriteStored.
func RecordOutputs(current Fingerprint, outputPaths []string) Fingerprint {
	out := make(Fingerprint, len(current)+len(outputPaths))
	for k, v := range current {
		out[k] = v
	}
	out.recordOutputs(outputPaths)
	return out
}

// Diff returns the keys whose values differ between stored and current,
// including keys present in only one side, sorted for stable log output.
func Diff(stored, current Fingerprint) []string {
	seen := map[string]bool{}
	for k := range stored {
		seen[k] = true
	}
	for k := range current {
		seen[k] = true
	}
	var changed []string
	for k := range seen {
		if stored[k] != current[k] {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
