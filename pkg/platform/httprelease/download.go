package httprelease

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const downloadTimeout = 10 * time.Minute

// beginDownload starts a background download of the item's artifact. The
// artifact is written to a .part file and renamed into place only when
// complete, so the final path never holds a partial download. Duplicate
// requests for an in-flight path are dropped.
func (s *Source) beginDownload(it *releaseItem) {
	path, err := it.LocalPath()
	if err != nil {
		s.log.WithError(err).Error("unable to resolve artifact path for download")
		return
	}

	s.mu.Lock()
	if _, busy := s.inflight[path]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[path] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, path)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()

		if err := s.downloadToFile(ctx, it.entry.URL, path); err != nil {
			s.log.WithField("path", path).WithError(err).Error("artifact download failed")
			return
		}
		s.log.WithField("path", path).Info("artifact downloaded")
	}()
}

func (s *Source) downloadToFile(ctx context.Context, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, "unable to create artifact directory")
	}

	part := dst + ".part"
	out, err := os.Create(part)
	if err != nil {
		return errors.Wrap(err, "unable to create staging file")
	}

	if err := s.downloadOnce(ctx, url, out); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return err
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return errors.Wrap(err, "unable to close staging file")
	}

	return errors.Wrap(os.Rename(part, dst), "unable to finalize artifact")
}

func (s *Source) downloadOnce(ctx context.Context, url string, out *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "unable to build download request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download request failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("unable to close download response")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected download status %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, "unable to write artifact")
	}
	return nil
}
