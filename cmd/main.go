package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"airchat-bot/handler"
	"airchat-bot/internal/commands"
	"airchat-bot/internal/integrations/anthropic"
	"airchat-bot/internal/integrations/gemini"
	"airchat-bot/internal/integrations/openai"
	"airchat-bot/internal/integrations/paramstore"
	"airchat-bot/internal/integrations/telegram"
	"airchat-bot/internal/llm"
	"airchat-bot/internal/repository"
	"airchat-bot/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	telegramAPIBase := os.Getenv("TELEGRAM_API_BASE")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	params, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state store", "err", err)
		os.Exit(1)
	}

	tokens, err := paramstore.NewBotTokenSource(params, paramPrefix)
	if err != nil {
		slog.Error("failed to create bot token source", "err", err)
		os.Exit(1)
	}
	webhookSecret, err := paramstore.WebhookSecret(ctx, params, paramPrefix)
	if err != nil {
		slog.Error("failed to load webhook secret", "err", err)
		os.Exit(1)
	}

	telegramOpts := []telegram.Option{
		telegram.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if telegramAPIBase != "" {
		telegramOpts = append(telegramOpts, telegram.WithAPIBase(telegramAPIBase))
	}
	bot, err := telegram.NewClient(tokens, telegramOpts...)
	if err != nil {
		slog.Error("failed to create telegram client", "err", err)
		os.Exit(1)
	}

	dispatcher, err := llm.NewDispatcher(
		anthropic.NewClient(),
		openai.NewClient(),
		gemini.NewClient(),
	)
	if err != nil {
		slog.Error("failed to create llm dispatcher", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	cmds, err := commands.NewHandler(store)
	if err != nil {
		slog.Error("failed to create command handler", "err", err)
		os.Exit(1)
	}
	relay, err := usecase.NewRelayService(bot, store, dispatcher, cmds)
	if err != nil {
		slog.Error("failed to create relay service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(relay, bot, webhookSecret)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
