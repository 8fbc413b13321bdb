// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	businessflow "github.com/steelferguson/basin-climbing-data-pipeline-sub000/business_flow"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/config"
)

// PipelineScheduler periodically runs flag evaluation over the full customer
// base. Runs are serialized through a Redis lock so overlapping invocations
// (two replicas, a manual trigger during a scheduled run) cannot race on the
// read-modify-write of the flags table.
type PipelineScheduler struct {
	flagging businessflow.FlaggingFlow
	imports  businessflow.ContactImportFlow
	cache    *redis.Client
	cfg      config.SchedulerConfig
	logger   *log.Logger
}

func NewPipelineScheduler(
	flagging businessflow.FlaggingFlow,
	imports businessflow.ContactImportFlow,
	cache *redis.Client,
	cfg config.SchedulerConfig,
	logger *log.Logger,
) *PipelineScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PipelineScheduler{
		flagging: flagging,
		imports:  imports,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// NewPipelineLogger builds the run log writer: stdout, a size-rotated file,
// or both, per configuration.
func NewPipelineLogger(cfg config.LoggingConfig) *log.Logger {
	var writers []io.Writer
	if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
		writers = append(writers, os.Stdout)
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	return log.New(io.MultiWriter(writers...), "pipeline ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *PipelineScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		if s.cfg.RunOnStartup {
			s.RunOnce(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce executes one evaluation run under the run lock. It is also the
// entry point for manually triggered runs.
func (s *PipelineScheduler) RunOnce(ctx context.Context) {
	release, acquired, err := s.acquireRunLock(ctx)
	if err != nil {
		s.logger.Printf("scheduler: run lock acquisition failed: %v", err)
		return
	}
	if !acquired {
		pipelineRunsSkipped.Inc()
		s.logger.Printf("scheduler: another run holds the lock, skipping")
		return
	}
	defer release()

	s.importPendingFiles(ctx)

	start := time.Now()
	summary, err := s.flagging.EvaluateAllCustomers(ctx)
	observeRun(summary, err, time.Since(start))
	if err != nil {
		s.logger.Printf("scheduler: evaluation run failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: evaluation run finished in %s", time.Since(start).Round(time.Millisecond))
}

// importPendingFiles ingests contact exports dropped into the import
// directory. Filenames follow `<source>_<anything>.{csv,xlsx}`; processed
// files are renamed with a .done suffix so a failed file stays in place for
// the next run. Import failures never block the evaluation pass.
func (s *PipelineScheduler) importPendingFiles(ctx context.Context) {
	if s.imports == nil || s.cfg.ImportDir == "" {
		return
	}

	entries, err := os.ReadDir(s.cfg.ImportDir)
	if err != nil {
		s.logger.Printf("scheduler: import directory scan failed: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		path := filepath.Join(s.cfg.ImportDir, name)
		file, err := os.Open(path)
		if err != nil {
			s.logger.Printf("scheduler: cannot open import file %s: %v", name, err)
			continue
		}

		summary, err := s.imports.ImportContactsFile(ctx, file, name, sourceFromFilename(name))
		file.Close()
		if err != nil {
			s.logger.Printf("scheduler: import of %s failed: %v", name, err)
			continue
		}

		observeImport(summary)
		if err := os.Rename(path, path+".done"); err != nil {
			s.logger.Printf("scheduler: cannot mark %s processed: %v", name, err)
		}
		s.logger.Printf("scheduler: imported %s: %d rows, %d skipped, %d new customers",
			name, summary.RowsRead, summary.RowsSkipped, summary.Resolution.NewCustomers)
	}
}

// sourceFromFilename derives the upstream source from the drop-file naming
// convention, e.g. capitan_members_2026-08.csv belongs to source "capitan".
func sourceFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if idx := strings.IndexByte(base, '_'); idx > 0 {
		return base[:idx]
	}
	return base
}

// acquireRunLock takes the Redis run lock. Without a cache client the lock
// degrades to a no-op and single-instance deployment is assumed.
func (s *PipelineScheduler) acquireRunLock(ctx context.Context) (func(), bool, error) {
	if s.cache == nil {
		return func() {}, true, nil
	}

	hostname, _ := os.Hostname()
	holder := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	ok, err := s.cache.SetNX(ctx, s.cfg.RunLockKey, holder, s.cfg.RunLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete in one script so an expired lock re-acquired by
		// another instance is never deleted out from under it. The TTL covers
		// a crashed holder.
		err := releaseRunLockScript.Run(context.Background(), s.cache, []string{s.cfg.RunLockKey}, holder).Err()
		if err != nil {
			s.logger.Printf("scheduler: run lock release failed: %v", err)
		}
	}
	return release, true, nil
}

var releaseRunLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)
