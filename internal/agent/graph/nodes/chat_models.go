package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/propchat-core/server/internal/agent/graph/parsers"
	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	Client        *genai.Client
	RewriteConfig *model.RewriteModelConfig
	SQLConfig     *model.SQLModelConfig
	ReportConfig  *model.ReportModelConfig
}

// ChatModels holds the per-concern chat models used by the workflow nodes.
type ChatModels struct {
	Rewrite *gemini.ChatModel
	SQL     *gemini.ChatModel
	Report  *gemini.ChatModel
}

// NewClient creates the shared Gemini client used by chat models and the
// embedding service.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates the rewrite, SQL-generation and report chat models
// on one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	rewrite, err := newChatModel(ctx, config.Client, config.RewriteConfig.Model,
		config.RewriteConfig.Temperature, config.RewriteConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating rewrite model: %w", err)
	}

	sqlModel, err := newChatModel(ctx, config.Client, config.SQLConfig.Model,
		config.SQLConfig.Temperature, config.SQLConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating SQL model: %w", err)
	}

	report, err := newChatModel(ctx, config.Client, config.ReportConfig.Model,
		config.ReportConfig.Temperature, config.ReportConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating report model: %w", err)
	}

	return &ChatModels{Rewrite: rewrite, SQL: sqlModel, Report: report}, nil
}

func newChatModel(ctx context.Context, client *genai.Client, modelName string, temperature float32, maxTokens int) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       modelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
}

// completer adapts a chat model to the opaque text-in/text-out contract the
// nodes consume.
type completer struct {
	cm        *gemini.ChatModel
	modelName string
}

// NewCompleter wraps a chat model as a model.ChatCompleter.
func NewCompleter(cm *gemini.ChatModel, modelName string) model.ChatCompleter {
	return &completer{cm: cm, modelName: modelName}
}

func (c *completer) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	out, err := c.cm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", fmt.Errorf("model %s returned no message", c.modelName)
	}
	logUsage(c.modelName, out)
	return strings.TrimSpace(out.Content), nil
}

// sqlGenerator adapts a chat model to the structured single-field sql_query
// contract.
type sqlGenerator struct {
	cm        *gemini.ChatModel
	modelName string
}

// NewSQLGenerator wraps a chat model as a model.SQLGenerator.
func NewSQLGenerator(cm *gemini.ChatModel, modelName string) model.SQLGenerator {
	return &sqlGenerator{cm: cm, modelName: modelName}
}

func (g *sqlGenerator) GenerateSQL(ctx context.Context, messages []*schema.Message) (model.SQLOutput, error) {
	out, err := g.cm.Generate(ctx, messages)
	if err != nil {
		return model.SQLOutput{}, err
	}
	if out == nil {
		return model.SQLOutput{}, fmt.Errorf("model %s returned no message", g.modelName)
	}
	logUsage(g.modelName, out)

	parsed, err := parsers.ParseSQLResponse(out.Content)
	if err != nil {
		return model.SQLOutput{}, err
	}
	return *parsed, nil
}

func logUsage(modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	logx.Debug().
		Str("model", modelName).
		Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
		Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
		Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
		Msg("LLM usage")
}
