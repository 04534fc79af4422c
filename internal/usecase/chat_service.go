package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/intent"
	"adsinsight/internal/pipeline"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"github.com/google/uuid"
)

var (
	ErrNoRows    = errors.New("no rows to analyze")
	ErrNoSources = errors.New("no sheet sources configured")
)

// how an answer was produced
const (
	AnswerTemplate  = "template"
	AnswerGenerated = "generator"
	AnswerSummary   = "summary"
	AnswerPrompt    = "worksheet_prompt"
)

const responseHistoryLimit = 50

type ChatConfig struct {
	SourceIDs []string
	// HistoryTurns is how many earlier messages are passed to the generator.
	HistoryTurns     int
	FetchConcurrency int
}

type ChatService struct {
	pipeline   *pipeline.Pipeline
	classifier *intent.Classifier
	source     domain.RowSource
	cache      domain.RowCache
	history    domain.HistoryRepository
	generator  domain.AnswerGenerator
	logger     *logger.Logger
	metrics    *metrics.Metrics
	cfg        ChatConfig
	now        func() time.Time
}

// generator and cache may be nil
func NewChatService(
	p *pipeline.Pipeline,
	classifier *intent.Classifier,
	source domain.RowSource,
	cache domain.RowCache,
	history domain.HistoryRepository,
	generator domain.AnswerGenerator,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	cfg ChatConfig,
) *ChatService {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	return &ChatService{
		pipeline:   p,
		classifier: classifier,
		source:     source,
		cache:      cache,
		history:    history,
		generator:  generator,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

type AskRequest struct {
	SessionID string
	Question  string
	// Rows overrides the configured sources when non-empty.
	Rows []domain.Row
}

type AskResponse struct {
	SessionID    string                 `json:"session_id"`
	Answer       string                 `json:"answer"`
	AnswerSource string                 `json:"answer_source"`
	Bundle       *domain.Bundle         `json:"bundle,omitempty"`
	Worksheets   []domain.WorksheetInfo `json:"worksheet_row_meta"`
	History      []domain.Message       `json:"chat_history"`
}

// Ask answers one chat question and records both turns in the session history.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, sessionID)
	log := s.logger.WithContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		resp := &AskResponse{SessionID: sessionID, Answer: pipeline.EmptyQuestionAnswer, AnswerSource: AnswerTemplate}
		s.remember(ctx, sessionID, s.message(sessionID, domain.RoleAssistant, resp.Answer))
		resp.History = s.recentHistory(ctx, sessionID, responseHistoryLimit)
		s.metrics.RecordAnswer(AnswerTemplate)
		return resp, nil
	}

	asked := s.message(sessionID, domain.RoleUser, question)
	earlier := s.recentHistory(ctx, sessionID, s.cfg.HistoryTurns)

	worksheets, err := s.worksheets(ctx, req.Rows)
	if err != nil {
		return nil, err
	}

	in := s.classifier.Classify(question)
	answer, source, selected := s.preAnswer(question, in.Kind, worksheets)
	if selected != "" {
		worksheets = onlyWorksheet(worksheets, selected)
	}
	resp := &AskResponse{SessionID: sessionID, Worksheets: worksheetInfo(worksheets)}

	if answer != "" {
		resp.Answer, resp.AnswerSource = answer, source
	} else {
		bundle, err := s.pipeline.Run(ctx, pipeline.Input{
			Rows:     flatten(worksheets),
			Question: question,
			History:  earlier,
			Now:      s.now(),
			Intent:   &in,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to analyze question: %w", err)
		}
		resp.Bundle = &bundle
		resp.Answer, resp.AnswerSource = s.answer(ctx, question, bundle, earlier)
	}

	s.metrics.RecordAnswer(resp.AnswerSource)
	s.remember(ctx, sessionID, asked, s.message(sessionID, domain.RoleAssistant, resp.Answer))
	resp.History = s.recentHistory(ctx, sessionID, responseHistoryLimit)

	log.WithFields(map[string]any{
		"answer_source": resp.AnswerSource,
		"worksheets":    len(resp.Worksheets),
	}).Info("Answered chat question")

	return resp, nil
}

// preAnswer answers questions that need worksheet metadata only. For
// analytic questions over several worksheets it either names the selected
// worksheet or asks the user to choose one.
func (s *ChatService) preAnswer(question string, kind domain.IntentKind, worksheets []domain.Worksheet) (answer, source, selected string) {
	if columnsPattern.MatchString(strings.ToLower(question)) {
		return columnsAnswer(worksheets, s.cfg.SourceIDs), AnswerTemplate, ""
	}

	names := uniqueNames(worksheets)
	if len(names) < 2 || !isAnalytic(kind) {
		return "", "", ""
	}

	name, ambiguous := SelectWorksheet(question, names)
	switch {
	case len(ambiguous) > 1:
		return disambiguationAnswer(ambiguous, worksheetInfo(worksheets), s.cfg.SourceIDs), AnswerPrompt, ""
	case name == "":
		return pickerAnswer(worksheetInfo(worksheets), s.cfg.SourceIDs), AnswerPrompt, ""
	}
	return "", "", name
}

func (s *ChatService) answer(ctx context.Context, question string, bundle domain.Bundle, history []domain.Message) (string, string) {
	if bundle.Direct {
		return bundle.Answer, AnswerTemplate
	}
	if s.generator == nil {
		return bundle.Summary, AnswerSummary
	}

	text, err := s.generator.Generate(ctx, domain.AnswerRequest{
		Question: question,
		Summary:  bundle.Summary,
		Intent:   bundle.Intent,
		History:  history,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAnswerNotConfigured) {
			s.logger.WithContext(ctx).WithError(err).Warn("Answer generation failed, returning summary")
		}
		return bundle.Summary, AnswerSummary
	}
	return text, AnswerGenerated
}

type AnalyzeRequest struct {
	Question string
	Rows     []domain.Row
}

// Analyze runs the pipeline over caller supplied rows and returns the bundle only.
func (s *ChatService) Analyze(ctx context.Context, req AnalyzeRequest) (domain.Bundle, error) {
	if len(req.Rows) == 0 {
		return domain.Bundle{}, ErrNoRows
	}
	bundle, err := s.pipeline.Run(ctx, pipeline.Input{Rows: req.Rows, Question: req.Question, Now: s.now()})
	if err != nil {
		return bundle, fmt.Errorf("failed to analyze rows: %w", err)
	}
	return bundle, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	messages, err := s.history.Recent(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return messages, nil
}

func (s *ChatService) ClearHistory(ctx context.Context, sessionID string) error {
	if err := s.history.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *ChatService) CacheStatus(ctx context.Context) ([]domain.CacheEntry, error) {
	if s.cache == nil {
		return []domain.CacheEntry{}, nil
	}
	entries, err := s.cache.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache status: %w", err)
	}
	return entries, nil
}

func (s *ChatService) ClearCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return n, nil
}

// worksheets groups request rows, or loads every configured source
func (s *ChatService) worksheets(ctx context.Context, rows []domain.Row) ([]domain.Worksheet, error) {
	if len(rows) > 0 {
		return groupRows(rows), nil
	}
	if len(s.cfg.SourceIDs) == 0 || s.source == nil {
		return nil, ErrNoSources
	}
	return s.loadSources(ctx)
}

type sourceResult struct {
	index      int
	worksheets []domain.Worksheet
	err        error
}

// loadSources fetches all sources with a bounded worker pool. A failing
// source is logged and skipped; only a total failure is an error.
func (s *ChatService) loadSources(ctx context.Context) ([]domain.Worksheet, error) {
	ids := s.cfg.SourceIDs
	jobs := make(chan int, len(ids))
	results := make(chan sourceResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < min(s.cfg.FetchConcurrency, len(ids)); i++ {
		wg.Go(func() {
			for idx := range jobs {
				ws, err := s.loadSource(ctx, ids[idx])
				results <- sourceResult{index: idx, worksheets: ws, err: err}
			}
		})
	}

	for i := range ids {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	perSource := make([][]domain.Worksheet, len(ids))
	var errs []error
	for r := range results {
		if r.err != nil {
			s.logger.WithContext(ctx).WithError(r.err).WithField("source_id", ids[r.index]).Error("Failed to load sheet source")
			errs = append(errs, r.err)
			continue
		}
		perSource[r.index] = r.worksheets
	}

	if len(errs) == len(ids) {
		return nil, fmt.Errorf("failed to load any sheet source: %w", errors.Join(errs...))
	}

	var all []domain.Worksheet
	for _, ws := range perSource {
		all = append(all, ws...)
	}
	return all, nil
}

func (s *ChatService) loadSource(ctx context.Context, sourceID string) ([]domain.Worksheet, error) {
	if s.cache != nil {
		ws, err := s.cache.Get(ctx, sourceID)
		if err == nil {
			return ws, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WithContext(ctx).WithError(err).WithField("source_id", sourceID).Warn("Row cache read failed")
		}
	}

	ws, err := s.source.FetchWorksheets(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source %s: %w", sourceID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sourceID, ws); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("source_id", sourceID).Warn("Row cache write failed")
		}
	}
	return ws, nil
}

func (s *ChatService) message(sessionID string, role domain.Role, text string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
}

// history failures never fail a chat turn
func (s *ChatService) remember(ctx context.Context, sessionID string, messages ...domain.Message) {
	if err := s.history.Append(ctx, sessionID, messages...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to store chat history")
	}
}

func (s *ChatService) recentHistory(ctx context.Context, sessionID string, limit int) []domain.Message {
	if limit <= 0 {
		return nil
	}
	messages, err := s.history.Recent(ctx, sessionID, limit)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to read chat history")
		return nil
	}
	return messages
}

func isAnalytic(k domain.IntentKind) bool {
	return k == domain.IntentTrend || k == domain.IntentPerformance || k == domain.IntentAdvice
}
