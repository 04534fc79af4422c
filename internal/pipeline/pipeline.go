package pipeline

import (
	"context"
	"fmt"
	"time"

	"adsinsight/internal/aggregate"
	"adsinsight/internal/domain"
	"adsinsight/internal/intent"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"
)

const EmptyQuestionAnswer = "Pertanyaan tidak boleh kosong. Silakan masukkan pertanyaan yang ingin Anda analisis."

// Stage is one named step of a run.
type Stage struct {
	Name string
	Run  func(State) State
}

type Input struct {
	Rows     []domain.Row
	Question string
	History  []domain.Message
	// Now anchors dates without a year; zero means time.Now.
	Now time.Time
	// Intent, when set, replaces classification of Question.
	Intent *domain.Intent
}

type Options struct {
	// GranularThreshold caps the row count for per-day and per-ad stages.
	GranularThreshold int
	DefaultTopN       int
}

type Pipeline struct {
	classifier *intent.Classifier
	guard      aggregate.Granularity
	logger     *logger.Logger
	metrics    *metrics.Metrics
	stages     []Stage
}

func New(opts Options, logger *logger.Logger, metrics *metrics.Metrics) *Pipeline {
	p := &Pipeline{
		classifier: intent.New(opts.DefaultTopN),
		guard:      aggregate.Granularity{Threshold: opts.GranularThreshold},
		logger:     logger,
		metrics:    metrics,
	}
	p.stages = p.stageTable()
	return p
}

// StageNames lists the stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes every stage over the input rows. Cancellation is checked
// between stages; an interrupted run returns the partial bundle together
// with the context error.
func (p *Pipeline) Run(ctx context.Context, in Input) (domain.Bundle, error) {
	start := time.Now()
	now := in.Now
	if now.IsZero() {
		now = start
	}

	s := State{
		Question: in.Question,
		History:  in.History,
		Now:      now,
		Source:   in.Rows,
		Rows:     in.Rows,
	}
	s.Diagnostics.RowsIn = len(in.Rows)
	if in.Intent != nil {
		s.Intent, s.classified = *in.Intent, true
	}

	if isBlank(in.Question) {
		s.Intent = domain.Intent{Kind: domain.IntentGeneral, Question: in.Question}
		s.Answer = EmptyQuestionAnswer
		s.Direct = true
		p.metrics.RecordPipelineRun(string(domain.IntentGeneral), "empty_question", time.Since(start))
		return s.Bundle(), nil
	}

	p.metrics.IncPipelineRunsInProgress()
	defer p.metrics.DecPipelineRunsInProgress()

	log := p.logger.WithContext(ctx)
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			s.Diagnostics.Interrupted = stage.Name
			log.WithFields(map[string]any{
				"stage": stage.Name,
				"error": err.Error(),
			}).Warn("Pipeline interrupted")
			p.metrics.RecordPipelineRun(string(s.Intent.Kind), "interrupted", time.Since(start))
			return s.Bundle(), fmt.Errorf("pipeline interrupted before %s: %w", stage.Name, err)
		}

		stageStart := time.Now()
		s = stage.Run(s)
		p.metrics.RecordStage(stage.Name, time.Since(stageStart))
	}

	p.record(ctx, s, time.Since(start))
	return s.Bundle(), nil
}

func (p *Pipeline) record(ctx context.Context, s State, duration time.Duration) {
	d := s.Diagnostics
	p.metrics.RecordRows("in", d.RowsIn)
	p.metrics.RecordRows("kept", d.RowsKept)
	p.metrics.RecordRows("dropped", d.RowsIn-d.RowsKept)
	p.metrics.RecordParseFailures("date", d.UnparsedDates)
	p.metrics.RecordPipelineRun(string(s.Intent.Kind), "success", duration)

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"intent":    s.Intent.Kind,
		"rows_in":   d.RowsIn,
		"rows_kept": d.RowsKept,
		"direct":    s.Direct,
		"duration":  duration.String(),
	})
	if d.UnparsedDates > 0 || d.NoDateColumn {
		log.WithFields(map[string]any{
			"unparsed_dates": d.UnparsedDates,
			"no_date_column": d.NoDateColumn,
		}).Warn("Rows excluded from period filter")
	}
	if d.RankingError != "" {
		log.WithField("ranking_error", d.RankingError).Info("Ranking produced no segments")
	}
	log.Debug("Pipeline completed")
}
