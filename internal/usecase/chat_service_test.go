package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/infrastructure"
	"adsinsight/internal/intent"
	"adsinsight/internal/pipeline"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string][]domain.Worksheet
	fail  map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		data:  make(map[string][]domain.Worksheet),
		fail:  make(map[string]error),
	}
}

func (f *fakeSource) FetchWorksheets(ctx context.Context, sourceID string) ([]domain.Worksheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sourceID]++
	if err := f.fail[sourceID]; err != nil {
		return nil, err
	}
	return f.data[sourceID], nil
}

type fakeGenerator struct {
	answer string
	err    error
	got    []domain.AnswerRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req domain.AnswerRequest) (string, error) {
	f.got = append(f.got, req)
	return f.answer, f.err
}

type testDeps struct {
	service *ChatService
	source  *fakeSource
	history *infrastructure.MemoryHistoryRepository
}

func newTestService(t *testing.T, cfg ChatConfig, generator domain.AnswerGenerator) testDeps {
	t.Helper()
	log := logger.Discard()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	source := newFakeSource()
	history := infrastructure.NewMemoryHistoryRepository(log)
	cache := infrastructure.NewMemoryRowCache(time.Minute, log, m)

	svc := NewChatService(
		pipeline.New(pipeline.Options{}, log, m),
		intent.New(0),
		source, cache, history, generator, log, m, cfg,
	)
	svc.now = func() time.Time { return time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC) }
	return testDeps{service: svc, source: source, history: history}
}

func adRow(worksheet, adset string, cost, whatsapp int) domain.Row {
	return domain.NewRow("s1", worksheet,
		domain.Col("Cost", cost), domain.Col("Impressions", 1000), domain.Col("All Clicks", 50),
		domain.Col("WhatsApp", whatsapp), domain.Col("Ad set", adset),
	)
}

func TestAskEmptyQuestion(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)

	resp, err := d.service.Ask(context.Background(), AskRequest{SessionID: "sess", Question: "  "})
	require.NoError(t, err)

	assert.Equal(t, pipeline.EmptyQuestionAnswer, resp.Answer)
	assert.Equal(t, AnswerTemplate, resp.AnswerSource)
	assert.Nil(t, resp.Bundle)
	require.Len(t, resp.History, 1)
	assert.Equal(t, domain.RoleAssistant, resp.History[0].Role)
}

func TestAskDirectAnswerFromRequestRows(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)
	rows := []domain.Row{adRow("Main", "A", 10000, 5), adRow("Main", "B", 20000, 10)}

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "adset mana dengan cost tertinggi?", Rows: rows})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, AnswerTemplate, resp.AnswerSource)
	assert.Equal(t, "Ad set dengan Cost tertinggi:\n1. B: Rp 20,000\n2. A: Rp 10,000", resp.Answer)
	require.NotNil(t, resp.Bundle)
	assert.True(t, resp.Bundle.Direct)
	assert.Equal(t, []domain.WorksheetInfo{{SourceID: "s1", Name: "Main", RowCount: 2}}, resp.Worksheets)

	require.Len(t, resp.History, 2)
	assert.Equal(t, domain.RoleUser, resp.History[0].Role)
	assert.Equal(t, "adset mana dengan cost tertinggi?", resp.History[0].Text)
	assert.Equal(t, resp.Answer, resp.History[1].Text)
	assert.Zero(t, d.source.calls["s1"])
}

func TestAskUsesGeneratorWithRecentHistory(t *testing.T) {
	gen := &fakeGenerator{answer: "Fokuskan budget ke ad set A."}
	d := newTestService(t, ChatConfig{HistoryTurns: 2}, gen)
	ctx := context.Background()

	require.NoError(t, d.history.Append(ctx, "sess",
		domain.Message{ID: "1", Role: domain.RoleUser, Text: "halo"},
		domain.Message{ID: "2", Role: domain.RoleAssistant, Text: "hai"},
		domain.Message{ID: "3", Role: domain.RoleUser, Text: "cpwa berapa?"},
	))

	rows := []domain.Row{adRow("Main", "A", 10000, 5), adRow("Main", "B", 20000, 10)}
	resp, err := d.service.Ask(ctx, AskRequest{SessionID: "sess", Question: "bagaimana cara menurunkan cpwa?", Rows: rows})
	require.NoError(t, err)

	assert.Equal(t, AnswerGenerated, resp.AnswerSource)
	assert.Equal(t, "Fokuskan budget ke ad set A.", resp.Answer)

	require.Len(t, gen.got, 1)
	req := gen.got[0]
	assert.Equal(t, "bagaimana cara menurunkan cpwa?", req.Question)
	assert.Contains(t, req.Summary, "Main metrics:")
	assert.Equal(t, domain.IntentAdvice, req.Intent.Kind)
	require.Len(t, req.History, 2)
	assert.Equal(t, "2", req.History[0].ID)
	assert.Equal(t, "3", req.History[1].ID)

	assert.Len(t, resp.History, 5)
}

func TestAskFallsBackToSummary(t *testing.T) {
	for _, genErr := range []error{errors.New("gateway down"), domain.ErrAnswerNotConfigured} {
		t.Run(genErr.Error(), func(t *testing.T) {
			gen := &fakeGenerator{err: genErr}
			d := newTestService(t, ChatConfig{}, gen)
			rows := []domain.Row{adRow("Main", "A", 10000, 5)}

			resp, err := d.service.Ask(context.Background(), AskRequest{Question: "bagaimana cara menurunkan cpwa?", Rows: rows})
			require.NoError(t, err)

			assert.Len(t, gen.got, 1)
			assert.Equal(t, AnswerSummary, resp.AnswerSource)
			assert.Equal(t, resp.Bundle.Summary, resp.Answer)
			assert.Contains(t, resp.Answer, "Main metrics:")
		})
	}
}

func TestAskAdsetQuestionKeepsAllRows(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)
	rows := []domain.Row{adRow("Main", "A", 100, 1), adRow("Main", "B", 200, 2), adRow("Main", "Brand Awareness", 400, 4)}

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "analisis performa ad set kami", Rows: rows})
	require.NoError(t, err)

	require.NotNil(t, resp.Bundle)
	assert.Equal(t, domain.IntentPerformance, resp.Bundle.Intent.Kind)
	assert.Empty(t, resp.Bundle.Intent.Segment.AdsetName)
	assert.Equal(t, 700.0, resp.Bundle.MainTotals.Cost)
}

func TestAskLoadsSourcesThroughCache(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1", "s2"}}, nil)
	d.source.data["s1"] = []domain.Worksheet{{SourceID: "s1", Name: "Main", Rows: []domain.Row{adRow("Main", "A", 100, 1), adRow("Main", "B", 200, 2)}}}
	d.source.data["s2"] = []domain.Worksheet{{SourceID: "s2", Name: "Retarget", Rows: []domain.Row{
		domain.NewRow("s2", "Retarget", domain.Col("Cost", 50), domain.Col("Ad set", "C")),
	}}}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := d.service.Ask(ctx, AskRequest{SessionID: "sess", Question: "ad set apa saja yang ada?"})
		require.NoError(t, err)
		assert.Equal(t, "Ad set di worksheet Main: A, B\nAd set di worksheet Retarget: C", resp.Answer)
		assert.Equal(t, []domain.WorksheetInfo{
			{SourceID: "s1", Name: "Main", RowCount: 2},
			{SourceID: "s2", Name: "Retarget", RowCount: 1},
		}, resp.Worksheets)
	}

	assert.Equal(t, 1, d.source.calls["s1"])
	assert.Equal(t, 1, d.source.calls["s2"])

	status, err := d.service.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, status, 2)

	n, err := d.service.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAskSkipsFailingSource(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1", "s2"}}, nil)
	d.source.data["s1"] = []domain.Worksheet{{SourceID: "s1", Name: "Main", Rows: []domain.Row{adRow("Main", "A", 100, 1)}}}
	d.source.fail["s2"] = errors.New("sheet not shared")

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "ad set apa saja yang ada?"})
	require.NoError(t, err)
	assert.Equal(t, "Ad set di worksheet Main: A", resp.Answer)

	d.source.fail["s1"] = errors.New("quota exceeded")
	_, err = d.service.ClearCache(context.Background())
	require.NoError(t, err)

	_, err = d.service.Ask(context.Background(), AskRequest{Question: "ad set apa saja yang ada?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load any sheet source")
}

func TestAskWithoutRowsOrSources(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)

	_, err := d.service.Ask(context.Background(), AskRequest{Question: "performa"})
	assert.ErrorIs(t, err, ErrNoSources)
}

func twoWorksheetRows(first, second string) []domain.Row {
	return []domain.Row{
		adRow(first, "A", 100, 1),
		adRow(second, "B", 200, 2),
		adRow(second, "C", 300, 3),
	}
}

func TestAskSelectsMentionedWorksheet(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1"}}, nil)
	rows := twoWorksheetRows("MSA Age Gender", "Metland Region")

	for _, q := range []string{"performa metland region", "performa metland"} {
		resp, err := d.service.Ask(context.Background(), AskRequest{Question: q, Rows: rows})
		require.NoError(t, err, q)

		assert.Equal(t, []domain.WorksheetInfo{{SourceID: "s1", Name: "Metland Region", RowCount: 2}}, resp.Worksheets, q)
		require.NotNil(t, resp.Bundle, q)
		assert.Equal(t, 500.0, resp.Bundle.MainTotals.Cost, q)
		assert.Equal(t, AnswerSummary, resp.AnswerSource, q)
	}
}

func TestAskAmbiguousWorksheetPrompts(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1"}}, nil)
	rows := twoWorksheetRows("MSA Age Gender", "Metland Age Gender")

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "performa age gender", Rows: rows})
	require.NoError(t, err)

	assert.Equal(t, AnswerPrompt, resp.AnswerSource)
	assert.Nil(t, resp.Bundle)
	assert.Contains(t, resp.Answer, "1. **MSA Age Gender** (File Sheet 1, 1 baris)")
	assert.Contains(t, resp.Answer, "2. **Metland Age Gender** (File Sheet 1, 2 baris)")
}

func TestAskWithoutWorksheetMentionShowsPicker(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1"}}, nil)
	rows := twoWorksheetRows("MSA Age Gender", "Metland Region")

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "performa iklan", Rows: rows})
	require.NoError(t, err)

	assert.Equal(t, AnswerPrompt, resp.AnswerSource)
	assert.Contains(t, resp.Answer, "**File Sheet 1** (2 worksheet):")
	assert.Contains(t, resp.Answer, "  - 'MSA Age Gender' (1 baris)")
	assert.Contains(t, resp.Answer, "  - 'Metland Region' (2 baris)")
}

func TestAskListsColumns(t *testing.T) {
	d := newTestService(t, ChatConfig{SourceIDs: []string{"s1"}}, nil)
	rows := []domain.Row{adRow("Main", "A", 100, 1)}

	resp, err := d.service.Ask(context.Background(), AskRequest{Question: "kolom apa saja yang tersedia?", Rows: rows})
	require.NoError(t, err)

	assert.Equal(t, "Berikut daftar worksheet dan kolom yang tersedia di semua file Google Sheets Anda:\n"+
		"- File Sheet 1 | Worksheet 'Main': kolom yang tersedia: Cost, Impressions, All Clicks, WhatsApp, Ad set\n"+
		"Anda bisa menanyakan insight, tren, atau breakdown berdasarkan kolom-kolom di atas.", resp.Answer)
}

func TestAnalyze(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)

	_, err := d.service.Analyze(context.Background(), AnalyzeRequest{Question: "performa"})
	assert.ErrorIs(t, err, ErrNoRows)

	b, err := d.service.Analyze(context.Background(), AnalyzeRequest{
		Question: "adset dengan whatsapp terbanyak",
		Rows:     []domain.Row{adRow("Main", "A", 100, 1), adRow("Main", "B", 100, 4)},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Ranking)
	assert.Equal(t, "B", b.Ranking.Segments[0].Key.String())
}

func TestHistoryAndClear(t *testing.T) {
	d := newTestService(t, ChatConfig{}, nil)
	ctx := context.Background()

	_, err := d.service.Ask(ctx, AskRequest{SessionID: "sess", Question: ""})
	require.NoError(t, err)

	msgs, err := d.service.History(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, d.service.ClearHistory(ctx, "sess"))
	msgs, err = d.service.History(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSelectWorksheet(t *testing.T) {
	names := []string{"MSA Age Gender", "Metland Region", "Metland Age Gender"}

	tests := []struct {
		question  string
		want      string
		ambiguous []string
	}{
		{"tren data msa age gender", "MSA Age Gender", nil},
		{"performa region", "Metland Region", nil},
		{"performa metland dan region", "Metland Region", nil},
		{"analisis age gender", "", []string{"MSA Age Gender", "Metland Age Gender"}},
		{"performa iklan", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ambiguous := SelectWorksheet(tt.question, names)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ambiguous, ambiguous)
		})
	}
}
