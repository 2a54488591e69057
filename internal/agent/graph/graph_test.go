package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propchat-core/server/internal/agent/graph/nodes"
	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/agent/repo"
)

// ================ Stub collaborators ================

type memCache struct {
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (m *memCache) key(ns, value string) string { return ns + "\x00" + value }

func (m *memCache) Get(ctx context.Context, ns, value string) (string, bool) {
	v, ok := m.data[m.key(ns, value)]
	return v, ok
}

func (m *memCache) Set(ctx context.Context, ns, value, payload string, ttl time.Duration) {
	m.data[m.key(ns, value)] = payload
}

func (m *memCache) GetJSON(ctx context.Context, ns, value string, out any) bool {
	v, ok := m.data[m.key(ns, value)]
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(v), out) == nil
}

func (m *memCache) SetJSON(ctx context.Context, ns, value string, payload any, ttl time.Duration) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	m.data[m.key(ns, value)] = string(b)
}

type stubSearcher struct {
	docs []model.Document
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	return s.docs, nil
}

type stubDatabase struct {
	result string
	ranSQL []string
}

func (d *stubDatabase) RunSQL(ctx context.Context, sql string) string {
	d.ranSQL = append(d.ranSQL, sql)
	return d.result
}

func (d *stubDatabase) SchemaInfo(ctx context.Context, includeTypes bool) (string, error) {
	return "public.properties columns: price (numeric), city (text)", nil
}

type stubUsers struct {
	email string
}

func (u *stubUsers) UserEmail(ctx context.Context, userID string) (string, error) {
	return u.email, nil
}

type stubCompleter struct {
	reply string
	calls int
}

func (c *stubCompleter) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	c.calls++
	return c.reply, nil
}

type stubSQLGen struct {
	sql   string
	calls int
}

func (g *stubSQLGen) GenerateSQL(ctx context.Context, messages []*schema.Message) (model.SQLOutput, error) {
	g.calls++
	return model.SQLOutput{SQLQuery: g.sql}, nil
}

type stubSender struct {
	result model.EmailResult
	calls  int
	lastTo string
}

func (s *stubSender) Send(ctx context.Context, report, recipient string) model.EmailResult {
	s.calls++
	s.lastTo = recipient
	return s.result
}

type fixture struct {
	rewrite  *stubCompleter
	sqlGen   *stubSQLGen
	reporter *stubCompleter
	db       *stubDatabase
	sender   *stubSender
	cache    *memCache
	runner   Runner
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		rewrite:  &stubCompleter{reply: "average condo price in Bangkok in 2026"},
		sqlGen:   &stubSQLGen{sql: "SELECT avg(price) FROM properties"},
		reporter: &stubCompleter{reply: "The average condo price is 4.5M THB."},
		db:       &stubDatabase{result: "avg_price\n4500000"},
		sender:   &stubSender{result: model.EmailResult{OK: true}},
		cache:    newMemCache(),
	}

	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		RewriteLLM:   f.rewrite,
		SQLGen:       f.sqlGen,
		ReportLLM:    f.reporter,
		Searcher:     &stubSearcher{docs: []model.Document{{Content: "price: listing price in THB"}}},
		Database:     f.db,
		Users:        &stubUsers{email: "onfile@example.com"},
		Mailer:       f.sender,
		Cache:        f.cache,
		RetrievalK:   1,
		RetrievalTTL: time.Hour,
		QueryTTL:     time.Hour,
		MaxSteps:     150,
	})
	require.NoError(t, err)

	f.runner = &graphRunner{
		runnable:      runnable,
		repo:          repo.NewRedisConversationRepository(rdb, time.Hour),
		historyWindow: 10,
	}
	return f
}

func visited(snapshots []string) map[string]bool {
	out := map[string]bool{}
	for _, n := range snapshots {
		out[n] = true
	}
	return out
}

// ================ Scenarios ================

func TestDataQuestionRunsSQLPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var order []string
	reply, err := f.runner.Watch(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "average condo price this year",
	}, func(node string, snapshot *model.State) {
		order = append(order, node)
	})
	require.NoError(t, err)
	assert.Equal(t, "The average condo price is 4.5M THB.", reply)

	assert.Equal(t, []string{
		nodes.NodeRetrieve,
		nodes.NodeRewriteQuery,
		nodes.NodePlanSQL,
		nodes.NodeRunSQL,
		nodes.NodeReport,
	}, order)
	assert.Equal(t, []string{"SELECT avg(price) FROM properties"}, f.db.ranSQL)
	assert.Equal(t, 0, f.sender.calls)
}

func TestGreetingSkipsSQLPath(t *testing.T) {
	f := newFixture(t)
	f.sqlGen.sql = ""
	ctx := context.Background()

	var order []string
	reply, err := f.runner.Watch(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "Hi! What can you do?",
	}, func(node string, snapshot *model.State) {
		order = append(order, node)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	seen := visited(order)
	assert.False(t, seen[nodes.NodeRunSQL])
	assert.True(t, seen[nodes.NodeReport])
	assert.Empty(t, f.db.ranSQL)
}

func TestEmailTurnDeliversReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var order []string
	reply, err := f.runner.Watch(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "email the report to ana@example.com",
	}, func(node string, snapshot *model.State) {
		order = append(order, node)
	})
	require.NoError(t, err)

	seen := visited(order)
	assert.True(t, seen[nodes.NodeEmail])
	assert.Equal(t, 1, f.sender.calls)
	assert.Equal(t, "ana@example.com", f.sender.lastTo)
	assert.Contains(t, reply, "ana@example.com")
	// rewriting is skipped for email turns so the address survives verbatim
	assert.Equal(t, 0, f.rewrite.calls)
}

func TestRepeatedQuestionReplaysWithoutReportModelCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := model.QueryInput{ConversationID: "c1", UserID: "u1", Question: "average condo price this year"}

	first, err := f.runner.Invoke(ctx, in)
	require.NoError(t, err)
	reportCalls := f.reporter.calls

	second, err := f.runner.Invoke(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, reportCalls, f.reporter.calls)
}

func TestEmailAfterAnswerDeliversCachedReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runner.Invoke(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "average condo price this year",
	})
	require.NoError(t, err)

	reply, err := f.runner.Invoke(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "send me the report",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.sender.calls)
	assert.Equal(t, "onfile@example.com", f.sender.lastTo)
	assert.Contains(t, reply, "onfile@example.com")
}

func TestConversationHistoryPersistsAcrossTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	conversations := repo.NewRedisConversationRepository(rdb, time.Hour)

	runner := &graphRunner{
		runnable:      f.runner.(*graphRunner).runnable,
		repo:          conversations,
		historyWindow: 10,
	}

	_, err := runner.Invoke(ctx, model.QueryInput{ConversationID: "c2", UserID: "u1", Question: "average condo price this year"})
	require.NoError(t, err)

	count, err := conversations.GetMessageCount(ctx, "c2")
	require.NoError(t, err)
	// one user message and one assistant reply
	assert.Equal(t, 2, count)
}

func TestEmptyInputRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runner.Invoke(ctx, model.QueryInput{ConversationID: "c1", Question: ""})
	assert.Error(t, err)

	_, err = f.runner.Invoke(ctx, model.QueryInput{ConversationID: "", Question: "hi"})
	assert.Error(t, err)
}

func TestWatchSnapshotsAreIsolatedCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var snapshots []*model.State
	_, err := f.runner.Watch(ctx, model.QueryInput{
		ConversationID: "c1",
		UserID:         "u1",
		Question:       "average condo price this year",
	}, func(node string, snapshot *model.State) {
		snapshots = append(snapshots, snapshot)
	})
	require.NoError(t, err)
	require.NotEmpty(t, snapshots)

	// mutating one snapshot must not bleed into the others
	snapshots[0].Question = "mutated"
	for _, s := range snapshots[1:] {
		assert.NotEqual(t, "mutated", s.Question)
	}
}

func TestBuildGraphValidation(t *testing.T) {
	ctx := context.Background()

	_, err := BuildGraph(ctx, nil)
	assert.Error(t, err)

	_, err = BuildGraph(ctx, &GraphConfig{})
	assert.Error(t, err)

	_, err = BuildGraph(ctx, &GraphConfig{
		RewriteLLM: &stubCompleter{},
		SQLGen:     &stubSQLGen{},
		ReportLLM:  &stubCompleter{},
	})
	assert.Error(t, err)
}

func TestFinalReply(t *testing.T) {
	s := &model.State{
		Report: "fallback report",
		Messages: []*schema.Message{
			schema.UserMessage("question"),
			schema.AssistantMessage("the answer", nil),
		},
	}
	assert.Equal(t, "the answer", finalReply(s))

	assert.Equal(t, "fallback report", finalReply(&model.State{Report: "fallback report"}))
	assert.Equal(t, "", finalReply(&model.State{}))
}

func TestParseTTL(t *testing.T) {
	assert.Equal(t, time.Hour, parseTTL("", time.Hour))
	assert.Equal(t, time.Hour, parseTTL("not-a-duration", time.Hour))
	assert.Equal(t, 30*time.Minute, parseTTL("30m", time.Hour))
}
