// Package scheduler は cron 式で定期ジョブを実行します。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job は定期実行される処理です。
type Job func(ctx context.Context) error

// Scheduler は robfig/cron のラッパーです。
// 各ジョブは前回の実行が終わっていなければスキップされ、panic は回復されます。
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	chain   cron.Chain
	base    context.Context
	timeout time.Duration
}

// Entry は登録済みのジョブです。
type Entry struct {
	ID       cron.EntryID
	Name     string
	job      cron.Job
	schedule cron.Schedule
	sched    *Scheduler
}

// New は base を親 context とする Scheduler を生成します。
// timeout が正の場合、1回の実行をその時間で打ち切ります。
func New(base context.Context, timeout time.Duration) *Scheduler {
	logger := slogLogger{}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(logger)),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		chain:   cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		base:    base,
		timeout: timeout,
	}
}

// Add は spec（例: "@hourly", "0 * * * *"）で job を登録します。
func (s *Scheduler) Add(spec, name string, job Job) (*Entry, error) {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	wrapped := s.chain.Then(cron.FuncJob(func() { s.run(name, job) }))
	id := s.cron.Schedule(sched, wrapped)
	return &Entry{ID: id, Name: name, job: wrapped, schedule: sched, sched: s}, nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.base
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	slog.Info("scheduled job started", "job", name)
	if err := job(ctx); err != nil {
		slog.Error("scheduled job failed", "job", name, "elapsed", time.Since(start), "error", err)
		return
	}
	slog.Info("scheduled job finished", "job", name, "elapsed", time.Since(start))
}

// RunNow はスケジュールを待たずにジョブを同期実行します。
// 同じジョブが実行中の場合はスキップされます。
func (e *Entry) RunNow() {
	e.job.Run()
}

// Next は次回の実行予定時刻を返します。Start 前は現在時刻からの予定を計算します。
func (e *Entry) Next() time.Time {
	if next := e.sched.cron.Entry(e.ID).Next; !next.IsZero() {
		return next
	}
	return e.schedule.Next(time.Now())
}

// Start はスケジューラをバックグラウンドで開始します。
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop はスケジューラを停止します。返される context は実行中のジョブが終わると Done になります。
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// slogLogger は cron.Logger を slog に橋渡しします。
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
