// File: internal/jobs/login_security_cleanup.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"teknigo_backend/internal/config"
)

// Purger deletes login-security rows older than retention. Implemented by loginsecurity.Guard.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// LoginSecurityCleanupJob periodically removes stale login attempts and rate limit windows.
type LoginSecurityCleanupJob struct {
	purger        Purger
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
	timeout       time.Duration
}

// NewLoginSecurityCleanupJob creates a new LoginSecurityCleanupJob.
func NewLoginSecurityCleanupJob(purger Purger, logger *zap.Logger, cfg *config.Config) *LoginSecurityCleanupJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)

	return &LoginSecurityCleanupJob{
		purger:        purger,
		logger:        logger.Named("LoginSecurityCleanupJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
		timeout:       5 * time.Minute,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *LoginSecurityCleanupJob) SetupAndStart() error {
	jobSpec := j.cfg.LoginSecurityCleanupSchedule
	if jobSpec == "" {
		j.logger.Warn("Login security cleanup schedule not defined (LOGIN_SECURITY_CLEANUP_SCHEDULE). Job will not run.")
		return nil
	}
	if j.cfg.LoginSecurityRetention <= 0 {
		return fmt.Errorf("login security retention must be positive, got %s", j.cfg.LoginSecurityRetention)
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule login security cleanup job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Login security cleanup job scheduled",
		zap.String("spec", jobSpec),
		zap.Duration("retention", j.cfg.LoginSecurityRetention),
		zap.Any("jobID", jobID),
	)
	j.cronScheduler.Start()
	return nil
}

func (j *LoginSecurityCleanupJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	j.RunOnce(ctx)
}

// RunOnce performs a single cleanup pass and returns the number of deleted rows.
func (j *LoginSecurityCleanupJob) RunOnce(ctx context.Context) int64 {
	j.logger.Debug("Starting login security cleanup run")
	deleted, err := j.purger.Purge(ctx, j.cfg.LoginSecurityRetention)
	if err != nil {
		j.logger.Error("Login security cleanup run failed", zap.Error(err))
		return 0
	}
	j.logger.Info("Login security cleanup run completed", zap.Int64("rows_deleted", deleted))
	return deleted
}

// Stop gracefully stops the cron scheduler.
func (j *LoginSecurityCleanupJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping login security cleanup scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Login security cleanup scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Login security cleanup scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine scheduler messages at debug level; cron emits one per wake-up.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, toFields(keysAndValues)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(toFields(keysAndValues), zap.Error(err))...)
}

func toFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
