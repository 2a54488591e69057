package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/propchat-core/server/internal/agent/graph/nodes"
	"github.com/propchat-core/server/internal/agent/graph/observers"
	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// Runner is a thin wrapper to execute the compiled graph with the public QueryInput.
type Runner interface {
	// Invoke runs one turn and returns the final assistant reply.
	Invoke(ctx context.Context, in model.QueryInput) (string, error)

	// Watch runs one turn like Invoke while forwarding each node's output
	// state to the listener, in execution order.
	Watch(ctx context.Context, in model.QueryInput, listener observers.StateListener) (string, error)
}

// Config holds everything needed to compose the full query workflow end-to-end.
// This is a convenience layer over GraphConfig that also constructs the three
// chat models on the shared Gemini client.
type Config struct {
	Client *genai.Client

	RewriteModel model.RewriteModelConfig
	SQLModel     model.SQLModelConfig
	ReportModel  model.ReportModelConfig

	Conversation model.ConversationConfig
	Graph        model.GraphConfig
	Cache        model.CacheConfig

	Searcher         model.Searcher
	Database         model.Database
	Users            model.UserDirectory
	Mailer           model.EmailSender
	CacheStore       model.Cache
	ConversationRepo model.ConversationRepository

	// Clock defaults to time.Now when nil.
	Clock nodes.Clock
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	RewriteLLM model.ChatCompleter
	SQLGen     model.SQLGenerator
	ReportLLM  model.ChatCompleter

	Searcher model.Searcher
	Database model.Database
	Users    model.UserDirectory
	Mailer   model.EmailSender
	Cache    model.Cache

	RetrievalK   int
	RetrievalTTL time.Duration
	QueryTTL     time.Duration
	MaxSteps     int
	Clock        nodes.Clock
}

// GraphBuilder handles the construction of the query workflow graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.State, *model.State]
}

type graphRunner struct {
	runnable      compose.Runnable[*model.State, *model.State]
	repo          model.ConversationRepository
	historyWindow int
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	return r.run(ctx, in, nil)
}

func (r *graphRunner) Watch(ctx context.Context, in model.QueryInput, listener observers.StateListener) (string, error) {
	return r.run(ctx, in, listener)
}

func (r *graphRunner) run(ctx context.Context, in model.QueryInput, listener observers.StateListener) (string, error) {
	if in.Question == "" {
		return "", fmt.Errorf("question is empty")
	}
	if in.ConversationID == "" {
		return "", fmt.Errorf("conversation id is empty")
	}

	entry := r.entryState(ctx, in)

	userMsg := schema.UserMessage(in.Question)
	if err := r.repo.AddMessage(ctx, in.ConversationID, userMsg); err != nil {
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("failed to persist user message")
	}

	opts := []compose.Option{compose.WithCallbacks(observers.NewAllCallbacks())}
	if listener != nil {
		opts = append(opts, compose.WithCallbacks(observers.NewStateProgressHandler(listener)))
	}

	out, err := r.runnable.Invoke(ctx, entry, opts...)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}

	reply := finalReply(out)
	if reply != "" {
		if err := r.repo.AddMessage(ctx, in.ConversationID, schema.AssistantMessage(reply, nil)); err != nil {
			logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("failed to persist assistant message")
		}
	}
	return reply, nil
}

// entryState builds the turn's starting state: prior history restored from
// the repository, then the new question appended. A history load failure
// degrades to a fresh conversation.
func (r *graphRunner) entryState(ctx context.Context, in model.QueryInput) *model.State {
	s := &model.State{
		Question:       in.Question,
		UserID:         in.UserID,
		ConversationID: in.ConversationID,
	}

	history, err := r.repo.LoadRecent(ctx, in.ConversationID, r.historyWindow)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("failed to load conversation history, starting fresh")
	} else if history != nil {
		s.Messages = history.Messages
	}

	s.AppendMessage(schema.UserMessage(in.Question), r.historyWindow)
	return s
}

// finalReply extracts the assistant's answer for the turn. The report and
// email nodes each append at most one assistant message; the report field is
// the fallback for email turns whose delivery reply was trimmed away.
func finalReply(s *model.State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m != nil && m.Role == schema.Assistant && m.Content != "" {
			return m.Content
		}
	}
	return s.Report
}

// BuildWorkflowGraph composes the chat models, builds the graph and returns a
// Runner bound to the conversation repository.
func BuildWorkflowGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.CacheStore == nil {
		return nil, fmt.Errorf("cache store is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Client:        cfg.Client,
		RewriteConfig: &cfg.RewriteModel,
		SQLConfig:     &cfg.SQLModel,
		ReportConfig:  &cfg.ReportModel,
	})
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		RewriteLLM:   nodes.NewCompleter(cms.Rewrite, cfg.RewriteModel.Model),
		SQLGen:       nodes.NewSQLGenerator(cms.SQL, cfg.SQLModel.Model),
		ReportLLM:    nodes.NewCompleter(cms.Report, cfg.ReportModel.Model),
		Searcher:     cfg.Searcher,
		Database:     cfg.Database,
		Users:        cfg.Users,
		Mailer:       cfg.Mailer,
		Cache:        cfg.CacheStore,
		RetrievalK:   cfg.Graph.RetrievalK,
		RetrievalTTL: parseTTL(cfg.Cache.DefaultTTL, 24*time.Hour),
		QueryTTL:     parseTTL(cfg.Cache.QueryTTL, time.Hour),
		MaxSteps:     cfg.Graph.MaxSteps,
		Clock:        clock,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Query workflow graph built successfully")
	return &graphRunner{
		runnable:      runnable,
		repo:          cfg.ConversationRepo,
		historyWindow: cfg.Conversation.History.MaxMessages,
	}, nil
}

// BuildGraph constructs and returns the compiled query workflow graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.State, *model.State], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.RewriteLLM == nil || config.SQLGen == nil || config.ReportLLM == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Searcher == nil || config.Database == nil || config.Users == nil || config.Mailer == nil || config.Cache == nil {
		return nil, fmt.Errorf("collaborators are not properly initialized")
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.State, *model.State](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnContext {
				return &model.TurnContext{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeRetrieve,
		nodes.NewRetrieveNode(b.config.Searcher, b.config.Cache, b.config.RetrievalK, b.config.RetrievalTTL),
		compose.WithNodeName(nodes.NodeRetrieve),
		compose.WithStatePreHandler(nodes.NewTurnContextPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeRewriteQuery,
		nodes.NewRewriteNode(b.config.RewriteLLM, b.config.Clock),
		compose.WithNodeName(nodes.NodeRewriteQuery),
		compose.WithStatePreHandler(nodes.NewStepCountPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodePlanSQL,
		nodes.NewPlanSQLNode(b.config.SQLGen, b.config.Database, b.config.Clock),
		compose.WithNodeName(nodes.NodePlanSQL),
		compose.WithStatePreHandler(nodes.NewStepCountPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeRunSQL,
		nodes.NewRunSQLNode(b.config.Database),
		compose.WithNodeName(nodes.NodeRunSQL),
		compose.WithStatePreHandler(nodes.NewStepCountPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeReport,
		nodes.NewReportNode(b.config.ReportLLM, b.config.Cache, b.config.Clock, b.config.QueryTTL),
		compose.WithNodeName(nodes.NodeReport),
		compose.WithStatePreHandler(nodes.NewStepCountPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeEmail,
		nodes.NewEmailNode(b.config.Mailer, b.config.Users, b.config.Cache),
		compose.WithNodeName(nodes.NodeEmail),
		compose.WithStatePreHandler(nodes.NewStepCountPreHandler()),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeRetrieve},
		{nodes.NodeRetrieve, nodes.NodeRewriteQuery},
		{nodes.NodeRewriteQuery, nodes.NodePlanSQL},
		{nodes.NodeRunSQL, nodes.NodeReport},
		{nodes.NodeEmail, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	sqlBranch := compose.NewGraphBranch(
		nodes.NewSQLCondition(),
		map[string]bool{
			nodes.NodeRunSQL: true,
			nodes.NodeReport: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodePlanSQL, sqlBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding SQL branch")
		return fmt.Errorf("error adding SQL branch: %w", err)
	}

	emailBranch := compose.NewGraphBranch(
		nodes.NewEmailCondition(),
		map[string]bool{
			nodes.NodeEmail: true,
			compose.END:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeReport, emailBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding email branch")
		return fmt.Errorf("error adding email branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.State, *model.State], error) {
	// The step ceiling guards against a future cyclic edge looping a turn
	// forever. The linear six-node flow stays far below it.
	maxSteps := b.config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 150
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// parseTTL parses a duration string, falling back when unset or malformed.
func parseTTL(val string, fallback time.Duration) time.Duration {
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		logx.Warn().Str("value", val).Msg("invalid TTL, using default")
		return fallback
	}
	return d
}
