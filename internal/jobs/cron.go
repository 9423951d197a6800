package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/config"
	"github.com/sakarnDev/jira-worklog/internal/repo"
	"github.com/sakarnDev/jira-worklog/internal/services"
)

type Janitor struct {
	cfg   config.Config
	log   zerolog.Logger
	repo  *repo.Repository
	cache *services.IdentityCache
	c     *cron.Cron
}

func NewJanitor(cfg config.Config, log zerolog.Logger, r *repo.Repository, cache *services.IdentityCache) *Janitor {
	loc, _ := time.LoadLocation(cfg.TZ)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	j := &Janitor{cfg: cfg, log: log, repo: r, cache: cache, c: c}
	_, _ = c.AddFunc(cfg.JanitorCron, j.sweep)
	return j
}

func (j *Janitor) Start() { j.c.Start() }
func (j *Janitor) Stop()  { j.c.Stop() }

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	const lockKey int64 = 727272
	ok, err := j.repo.TryAdvisoryLock(ctx, lockKey)
	if err != nil {
		j.log.Error().Err(err).Msg("janitor: lock error")
		return
	}
	if !ok {
		j.log.Info().Msg("janitor: already running elsewhere")
		return
	}
	defer func() { _ = j.repo.AdvisoryUnlock(context.Background(), lockKey) }()
	n, err := j.repo.DeleteExpiredSessions(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("janitor: session cleanup failed")
	}
	swept := j.cache.Sweep()
	j.log.Info().Int64("sessions", n).Int("identities", swept).Msg("janitor: swept")
}
