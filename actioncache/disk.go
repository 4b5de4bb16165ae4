package actioncache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/forgebuild/forgecore/util/status"
)

// hashPrefixDirLen shards entries across subdirectories by the first two
// hex characters of the rule key, the same sharding width the disk cache
// this backend is modeled on uses to keep any one directory from growing
// unbounded on filesystems with slow large-directory lookups.
const hashPrefixDirLen = 2

// DiskCache is an action cache backend that persists across process
// invocations: each rule key's artifact set is stored as a JSON manifest
// plus one file per output, under RootDir/<first 2 hex chars>/<ruleKey>/.
type DiskCache struct {
	RootDir string
}

// NewDiskCache constructs a disk-backed cache rooted at rootDir, creating
// it if necessary.
func NewDiskCache(rootDir string) (*DiskCache, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, status.InternalErrorf("actioncache: creating root dir %s: %s", rootDir, err)
	}
	return &DiskCache{RootDir: rootDir}, nil
}

func (c *DiskCache) entryDir(ruleKey string) string {
	prefix := ruleKey
	if len(prefix) > hashPrefixDirLen {
		prefix = prefix[:hashPrefixDirLen]
	}
	return filepath.Join(c.RootDir, prefix, ruleKey)
}

type manifest struct {
	Outputs []string `json:"outputs"`
}

func (c *DiskCache) Fetch(ctx context.Context, ruleKey string) (ArtifactSet, bool) {
	dir := c.entryDir(ruleKey)
	manifestBytes, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return ArtifactSet{}, false
	}
	var m manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return ArtifactSet{}, false
	}
	set := ArtifactSet{Outputs: make([]OutputFile, 0, len(m.Outputs))}
	for _, name := range m.Outputs {
		data, err := os.ReadFile(filepath.Join(dir, "outputs", name))
		if err != nil {
			return ArtifactSet{}, false
		}
		set.Outputs = append(set.Outputs, OutputFile{Name: name, Data: data})
	}
	return set, true
}

// Store writes set's manifest and output files under ruleKey's entry
// directory. It writes to a temporary sibling directory and renames it
// into place, so a concurrent Fetch never observes a partially written
// entry. Every Store of one key uses the same temporary directory, so
// concurrent Store calls for the same key are not safe.
func (c *DiskCache) Store(ctx context.Context, ruleKey string, set ArtifactSet) error {
	dir := c.entryDir(ruleKey)
	tmpDir := dir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return status.InternalErrorf("actioncache: clearing temp dir %s: %s", tmpDir, err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "outputs"), 0755); err != nil {
		return status.InternalErrorf("actioncache: creating temp dir %s: %s", tmpDir, err)
	}

	names := make([]string, 0, len(set.Outputs))
	for _, o := range set.Outputs {
		if err := os.WriteFile(filepath.Join(tmpDir, "outputs", o.Name), o.Data, 0644); err != nil {
			return status.InternalErrorf("actioncache: writing output %s: %s", o.Name, err)
		}
		names = append(names, o.Name)
	}
	manifestBytes, err := json.Marshal(manifest{Outputs: names})
	if err != nil {
		return status.InternalErrorf("actioncache: marshaling manifest for %s: %s", ruleKey, err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "manifest.json"), manifestBytes, 0644); err != nil {
		return status.InternalErrorf("actioncache: writing manifest for %s: %s", ruleKey, err)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return status.InternalErrorf("actioncache: creating parent of %s: %s", dir, err)
	}
	_ = os.RemoveAll(dir)
	if err := os.Rename(tmpDir, dir); err != nil {
		return status.InternalErrorf("actioncache: finalizing entry %s: %s", ruleKey, err)
	}
	return nil
}
