package httprelease

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/releasehound/releasehound/pkg/platform"
)

// releaseItem is a manifest entry bound to its source.
type releaseItem struct {
	source  *Source
	channel int64
	entry   manifestItem
	// gated marks items requiring a newer host application; they behave
	// as if they had no payload.
	gated bool
}

var _ platform.Item = (*releaseItem)(nil)

func (it *releaseItem) HasPayload() bool {
	return !it.gated && it.entry.URL != "" && it.entry.Filename != ""
}

func (it *releaseItem) EditedAt() int64 {
	if it.entry.EditedAt != 0 {
		return it.entry.EditedAt
	}
	return it.entry.CreatedAt
}

// LocalPath places the artifact under {artifactDir}/{channel}/{filename}.
// The filename must be a bare name; a manifest must not steer writes
// outside the artifact directory.
func (it *releaseItem) LocalPath() (string, error) {
	name := it.entry.Filename
	if name == "" {
		return "", errors.New("item has no artifact filename")
	}
	if filepath.Base(name) != name {
		return "", errors.Errorf("artifact filename %q is not a bare name", name)
	}
	return filepath.Join(it.source.artifactDir, fmt.Sprintf("%d", it.channel), name), nil
}

// RequestDownload begins asynchronous materialization of the artifact.
// Repeat requests while a download for the same path is in flight are
// ignored.
func (it *releaseItem) RequestDownload() {
	it.source.beginDownload(it)
}
