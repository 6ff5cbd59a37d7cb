package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
// Consumers (e.g. the bot token source) should depend on this interface
// rather than the concrete *Client so they remain testable without real
// AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// BotTokenSource resolves the Telegram bot token from a parameter under the
// configured prefix. It satisfies the token source interface of the Telegram
// client, which caches the resolved value for the process lifetime.
type BotTokenSource struct {
	params Getter
	name   string
}

// NewBotTokenSource builds a token source reading <prefix>/telegram-bot-token.
func NewBotTokenSource(params Getter, paramPrefix string) (*BotTokenSource, error) {
	if params == nil {
		return nil, errors.New("paramstore: params getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	return &BotTokenSource{params: params, name: paramPrefix + "/telegram-bot-token"}, nil
}

func (s *BotTokenSource) Token(ctx context.Context) (string, error) {
	v, err := s.params.GetParameter(ctx, s.name)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(v)
	if token == "" {
		return "", fmt.Errorf("paramstore: parameter %q holds an empty token", s.name)
	}
	return token, nil
}

// WebhookSecret reads the optional webhook secret token under the prefix.
// A missing parameter is not an error; it disables the header check.
func WebhookSecret(ctx context.Context, params Getter, paramPrefix string) (string, error) {
	if params == nil {
		return "", errors.New("paramstore: params getter must not be nil")
	}
	prefix := strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	v, err := params.GetParameter(ctx, prefix+"/webhook-secret")
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(v), nil
}
