// Package httprelease implements the platform.Source contract against
// HTTP-hosted release channels. Each channel publishes a JSON manifest
// listing its items; artifacts are downloaded into a local artifact
// directory where presence of the final file implies a complete download.
package httprelease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"

	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/platform"
)

const (
	manifestSizeLimit = 1 << 20

	fetchRetryInterval = 1 * time.Second
	fetchMaxRetries    = 2
)

// Config carries the source's settings.
type Config struct {
	// BaseURL is the root under which channels are hosted, e.g.
	// https://releases.example.com. A channel's manifest is expected at
	// {BaseURL}/channels/{channel}/manifest.json.
	BaseURL string
	// ArtifactDir is the local artifact cache directory.
	ArtifactDir string
	// AppVersion is the hosting application's version, used to honor an
	// item's minimum version requirement. Empty disables the gate.
	AppVersion string
	// Client overrides the HTTP client.
	Client *http.Client
}

// Source fetches release items over HTTP.
type Source struct {
	log         logging.Logger
	client      *http.Client
	baseURL     string
	artifactDir string
	appVersion  *goversion.Version

	mu       sync.Mutex
	inflight map[string]struct{}
}

var _ platform.Source = (*Source)(nil)

// New creates a Source for the given configuration.
func New(log logging.Logger, cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL must be provided")
	}
	if cfg.ArtifactDir == "" {
		return nil, errors.New("artifact directory must be provided")
	}

	var appVersion *goversion.Version
	if cfg.AppVersion != "" {
		v, err := goversion.NewVersion(cfg.AppVersion)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse application version %q", cfg.AppVersion)
		}
		appVersion = v
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Source{
		log:         log,
		client:      client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		artifactDir: cfg.ArtifactDir,
		appVersion:  appVersion,
		inflight:    map[string]struct{}{},
	}, nil
}

// FetchItem resolves the item at the channel coordinates. An item that is
// absent from a successfully fetched manifest is permanently gone and
// yields platform.ErrNotFound; manifest fetch failures are transient.
func (s *Source) FetchItem(ctx context.Context, channel, item int64) (platform.Item, error) {
	m, err := s.fetchManifest(ctx, channel)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to fetch manifest for channel %d", channel)
	}

	for _, entry := range m.Items {
		if entry.ID != item {
			continue
		}
		return s.resolveItem(channel, entry), nil
	}

	return nil, errors.Wrapf(platform.ErrNotFound, "item %d in channel %d", item, channel)
}

func (s *Source) manifestURL(channel int64) string {
	return fmt.Sprintf("%s/channels/%d/manifest.json", s.baseURL, channel)
}

// fetchManifest retrieves and decodes a channel manifest, retrying
// transient failures on a fixed interval before giving up for this cycle.
func (s *Source) fetchManifest(ctx context.Context, channel int64) (*manifest, error) {
	var m *manifest

	op := func() error {
		fetched, err := s.fetchManifestOnce(ctx, channel)
		if err != nil {
			s.log.WithField("channel", channel).WithError(err).Debug("manifest fetch attempt failed")
			return err
		}
		m = fetched
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(fetchRetryInterval), fetchMaxRetries),
		ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Source) fetchManifestOnce(ctx context.Context, channel int64) (*manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.manifestURL(channel), nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build manifest request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "manifest request failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("unable to close manifest response")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected manifest status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, manifestSizeLimit))
	if err != nil {
		return nil, errors.Wrap(err, "unable to read manifest")
	}

	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, errors.Wrap(err, "unable to decode manifest")
	}
	return &m, nil
}

// resolveItem binds a manifest entry to this source. Items requiring a
// newer host application than ours are treated as carrying no payload.
func (s *Source) resolveItem(channel int64, entry manifestItem) *releaseItem {
	it := &releaseItem{
		source:  s,
		channel: channel,
		entry:   entry,
	}

	if entry.MinAppVersion != "" && s.appVersion != nil {
		min, err := goversion.NewVersion(entry.MinAppVersion)
		switch {
		case err != nil:
			s.log.WithField("channel", channel).WithError(err).
				Warnf("item %d declares unparseable minimum version %q", entry.ID, entry.MinAppVersion)
		case s.appVersion.LessThan(min):
			s.log.WithField("channel", channel).
				Warnf("item %d requires application version %s, have %s", entry.ID, min, s.appVersion)
			it.gated = true
		}
	}

	return it
}
