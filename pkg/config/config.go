// Package config loads the daemon's configuration with viper, layering
// defaults under an optional config file, environment variables, and
// explicit overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	KeyPollIntervalSeconds   = "poll-interval-seconds"
	KeyBypassChangeDetection = "bypass-change-detection"
	KeyWarmupSeconds         = "warmup-seconds"
	KeyMaxDownloadTries      = "max-download-tries"
	KeyDatabasePath          = "database.path"
	KeyArtifactDir           = "artifact-dir"
	KeySourceBaseURL         = "source.base-url"
	KeyAppVersion            = "source.app-version"
	KeyInstallCommand        = "install-command"
	KeyTasks                 = "tasks"

	envPrefix = "RH"
)

const (
	DefaultPollIntervalSeconds = 600
	DefaultWarmupSeconds       = 5
	DefaultMaxDownloadTries    = 10
	DefaultDatabasePath        = "/var/lib/releasehound/markers.db"
	DefaultArtifactDir         = "/var/cache/releasehound/artifacts"
)

// SeedTask is a task declared in configuration, registered at startup.
// The config form is "component@channel/item".
type SeedTask struct {
	ComponentID string
	Channel     int64
	Item        int64
}

// Config is the daemon's resolved configuration.
type Config struct {
	PollInterval   time.Duration
	Warmup         time.Duration
	Bypass         bool
	MaxTries       int
	DatabasePath   string
	ArtifactDir    string
	SourceBaseURL  string
	AppVersion     string
	InstallCommand []string
	Tasks          []SeedTask
}

// Load resolves configuration with the precedence: defaults < config file
// < environment (RH_*) < overrides. An empty path skips the file layer.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyPollIntervalSeconds, DefaultPollIntervalSeconds)
	v.SetDefault(KeyBypassChangeDetection, false)
	v.SetDefault(KeyWarmupSeconds, DefaultWarmupSeconds)
	v.SetDefault(KeyMaxDownloadTries, DefaultMaxDownloadTries)
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyArtifactDir, DefaultArtifactDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %q", path)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{
		PollInterval:   time.Duration(v.GetInt(KeyPollIntervalSeconds)) * time.Second,
		Warmup:         time.Duration(v.GetInt(KeyWarmupSeconds)) * time.Second,
		Bypass:         v.GetBool(KeyBypassChangeDetection),
		MaxTries:       v.GetInt(KeyMaxDownloadTries),
		DatabasePath:   v.GetString(KeyDatabasePath),
		ArtifactDir:    v.GetString(KeyArtifactDir),
		SourceBaseURL:  v.GetString(KeySourceBaseURL),
		AppVersion:     v.GetString(KeyAppVersion),
		InstallCommand: v.GetStringSlice(KeyInstallCommand),
	}

	tasks, err := parseSeedTasks(v.GetStringSlice(KeyTasks))
	if err != nil {
		return nil, err
	}
	cfg.Tasks = tasks

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch {
	case c.PollInterval <= 0:
		return errors.Errorf("%s must be positive", KeyPollIntervalSeconds)
	case c.MaxTries <= 0:
		return errors.Errorf("%s must be positive", KeyMaxDownloadTries)
	case c.DatabasePath == "":
		return errors.Errorf("%s must be provided", KeyDatabasePath)
	case c.ArtifactDir == "":
		return errors.Errorf("%s must be provided", KeyArtifactDir)
	case c.SourceBaseURL == "":
		return errors.Errorf("%s must be provided", KeySourceBaseURL)
	case len(c.InstallCommand) == 0:
		return errors.Errorf("%s must be provided", KeyInstallCommand)
	}
	return nil
}

// parseSeedTasks parses "component@channel/item" declarations.
func parseSeedTasks(specs []string) ([]SeedTask, error) {
	var tasks []SeedTask
	for _, spec := range specs {
		st, err := parseSeedTask(spec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, st)
	}
	return tasks, nil
}

func parseSeedTask(spec string) (SeedTask, error) {
	malformed := func() (SeedTask, error) {
		return SeedTask{}, errors.Errorf("malformed task %q, want component@channel/item", spec)
	}

	component, location, ok := strings.Cut(spec, "@")
	if !ok || component == "" {
		return malformed()
	}
	channelStr, itemStr, ok := strings.Cut(location, "/")
	if !ok {
		return malformed()
	}
	channel, err := strconv.ParseInt(channelStr, 10, 64)
	if err != nil {
		return malformed()
	}
	item, err := strconv.ParseInt(itemStr, 10, 64)
	if err != nil {
		return malformed()
	}

	return SeedTask{ComponentID: component, Channel: channel, Item: item}, nil
}

// String renders the seed task back in its config form.
func (t SeedTask) String() string {
	return fmt.Sprintf("%s@%d/%d", t.ComponentID, t.Channel, t.Item)
}
