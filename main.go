package main

import (
	"context"
	"flag"
	"os"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"

	"github.com/releasehound/releasehound/pkg/config"
	"github.com/releasehound/releasehound/pkg/detector"
	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/marker"
	"github.com/releasehound/releasehound/pkg/notify"
	"github.com/releasehound/releasehound/pkg/pipeline"
	"github.com/releasehound/releasehound/pkg/platform/execinstall"
	"github.com/releasehound/releasehound/pkg/platform/httprelease"
	"github.com/releasehound/releasehound/pkg/sigcontext"
	"github.com/releasehound/releasehound/pkg/task"
	"github.com/releasehound/releasehound/pkg/updater"
	"github.com/releasehound/releasehound/pkg/workgroup"
	"github.com/releasehound/releasehound/pkg/workqueue"
)

var (
	flagConfig   = flag.String("config", "", "path to configuration file")
	flagLogDebug = flag.Bool("debug", false, "")
	flagBypass   = flag.Bool("bypass-change-detection", false, "reinstall watched artifacts every cycle regardless of change")
	flagOnce     = flag.Bool("once", false, "run a single notified update check and exit")
)

func main() {
	flag.Parse()

	if *flagLogDebug {
		logging.Set(logging.Level("debug"))
	}

	log := logging.New("main")

	overrides := map[string]any{}
	if *flagBypass {
		overrides[config.KeyBypassChangeDetection] = true
	}

	cfg, err := config.Load(*flagConfig, overrides)
	if err != nil {
		log.WithError(err).Fatalf("configuration")
	}

	ctx, cancel := sigcontext.WithSignalCancel(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log, cfg); err != nil {
		log.WithError(err).Error("releasehound stopped")
		os.Exit(1)
	}
	log.Info("releasehound stopped")
}

func run(ctx context.Context, log logging.Logger, cfg *config.Config) error {
	store, err := marker.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return errors.WithMessage(err, "marker store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.WithError(cerr).Warn("unable to close marker store")
		}
	}()

	source, err := httprelease.New(logging.New("source"), httprelease.Config{
		BaseURL:     cfg.SourceBaseURL,
		ArtifactDir: cfg.ArtifactDir,
		AppVersion:  cfg.AppVersion,
	})
	if err != nil {
		return errors.WithMessage(err, "release source")
	}

	installer, err := execinstall.New(logging.New("installer"), cfg.InstallCommand)
	if err != nil {
		return errors.WithMessage(err, "installer")
	}

	registry := task.NewRegistry(logging.New("registry"))
	for _, seed := range cfg.Tasks {
		registry.Register(task.Task{
			ComponentID: seed.ComponentID,
			Channel:     seed.Channel,
			Item:        seed.Item,
		})
	}

	notifier := notify.WithDedup(notify.NewBulletin(logging.New("bulletin")))
	det := detector.New(logging.New("detector"), store)

	if *flagOnce {
		// One notified check on the caller's goroutine; the blocking
		// scheduler keeps retry chains in-process until they terminate.
		runner := pipeline.New(logging.New("pipeline"), installer, notifier, blockingScheduler{})
		u := updater.New(logging.New("updater"), registry, det, source, runner, notifier, updater.Config{
			Bypass:   cfg.Bypass,
			MaxTries: cfg.MaxTries,
		})
		u.CheckOnce(ctx)
		return nil
	}

	queue := workqueue.New(logging.New("workqueue"))
	runner := pipeline.New(logging.New("pipeline"), installer, notifier, queue)

	u := updater.New(logging.New("updater"), registry, det, source, runner, notifier, updater.Config{
		PollInterval: cfg.PollInterval,
		Warmup:       cfg.Warmup,
		Bypass:       cfg.Bypass,
		MaxTries:     cfg.MaxTries,
	})

	// SIGUSR1 triggers an immediate check-all cycle with notifications.
	sigcontext.OnSignal(ctx, func(os.Signal) {
		u.RequestForceCheck()
	}, syscall.SIGUSR1)

	group := workgroup.WithContext(ctx)
	group.Work(queue.Run)

	u.Start()
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.WithError(err).Warn("unable to notify readiness")
	}

	<-ctx.Done()
	u.ForceStop()
	return errors.WithMessage(group.Wait(), "run error")
}

// blockingScheduler runs scheduled work inline after sleeping out the
// delay. Used by -once, where the process must outlive its retry chains.
type blockingScheduler struct{}

func (blockingScheduler) Schedule(delay time.Duration, fn func()) {
	if delay > 0 {
		time.Sleep(delay)
	}
	fn()
}
