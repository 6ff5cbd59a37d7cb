package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/models"
)

const (
	configKeyPrefix  = "config:"
	historyKeyPrefix = "history:"

	// maxHistoryMessages caps the stored conversation log. Entries are
	// appended in user/assistant pairs, so the even cap keeps pairs intact
	// when trimming from the front.
	maxHistoryMessages = 20

	attrKey  = "PK"
	attrData = "data"
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store persists per-user config and conversation history as JSON blobs in a
// DynamoDB table keyed by a single string attribute. Every access is a full
// read-modify-write; concurrent requests for the same user race and the last
// write wins, which callers must tolerate as the defined behavior.
type Store struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a Store over the given table.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName, now: time.Now}, nil
}

func configKey(userID int64) string {
	return fmt.Sprintf("%s%d", configKeyPrefix, userID)
}

func historyKey(userID int64) string {
	return fmt.Sprintf("%s%d", historyKeyPrefix, userID)
}

// get reads one JSON blob. The second return is false on a key miss.
func (s *Store) get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			attrKey: &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("repository: get %q: %w", key, err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, false, nil
	}
	v, ok := out.Item[attrData]
	if !ok {
		return nil, false, fmt.Errorf("repository: item %q missing %s attribute", key, attrData)
	}
	str, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return nil, false, fmt.Errorf("repository: item %q attribute %s is not a string", key, attrData)
	}
	return []byte(str.Value), true, nil
}

func (s *Store) put(ctx context.Context, key string, blob []byte) error {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			attrKey:  &types.AttributeValueMemberS{Value: key},
			attrData: &types.AttributeValueMemberS{Value: string(blob)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			attrKey: &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: delete %q: %w", key, err)
	}
	return nil
}

// GetUserConfig loads a user's configuration. A miss yields the default
// config (free-tier model, no keys), never an absence.
func (s *Store) GetUserConfig(ctx context.Context, userID int64) (domain.UserConfig, error) {
	raw, ok, err := s.get(ctx, configKey(userID))
	if err != nil {
		return domain.UserConfig{}, err
	}
	if !ok {
		return domain.UserConfig{Model: models.DefaultModel}, nil
	}
	var cfg domain.UserConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.UserConfig{}, fmt.Errorf("repository: decode user config: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = models.DefaultModel
	}
	return cfg, nil
}

// SaveUserConfig writes the full configuration blob.
func (s *Store) SaveUserConfig(ctx context.Context, userID int64, cfg domain.UserConfig) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("repository: encode user config: %w", err)
	}
	return s.put(ctx, configKey(userID), blob)
}

// UpdateUserConfig applies a partial update: the current config is read,
// mutated by update, and written back, preserving every untouched field.
// Returns the merged config.
func (s *Store) UpdateUserConfig(ctx context.Context, userID int64, update func(*domain.UserConfig)) (domain.UserConfig, error) {
	if update == nil {
		return domain.UserConfig{}, errors.New("repository: update func must not be nil")
	}
	cfg, err := s.GetUserConfig(ctx, userID)
	if err != nil {
		return domain.UserConfig{}, err
	}
	update(&cfg)
	if err := s.SaveUserConfig(ctx, userID, cfg); err != nil {
		return domain.UserConfig{}, err
	}
	return cfg, nil
}

// GetHistory loads a user's conversation history; a miss yields an empty log.
func (s *Store) GetHistory(ctx context.Context, userID int64) (domain.ConversationHistory, error) {
	raw, ok, err := s.get(ctx, historyKey(userID))
	if err != nil {
		return domain.ConversationHistory{}, err
	}
	if !ok {
		return domain.ConversationHistory{UpdatedAt: s.now().UnixMilli()}, nil
	}
	var h domain.ConversationHistory
	if err := json.Unmarshal(raw, &h); err != nil {
		return domain.ConversationHistory{}, fmt.Errorf("repository: decode history: %w", err)
	}
	return h, nil
}

// AppendTurn appends one completed user/assistant exchange and trims the log
// to the cap, dropping the oldest entries. Appending strictly in pairs is
// what keeps trimming from ever splitting a turn.
func (s *Store) AppendTurn(ctx context.Context, userID int64, userText, assistantText string) error {
	h, err := s.GetHistory(ctx, userID)
	if err != nil {
		return err
	}

	h.Messages = append(h.Messages,
		domain.ChatMessage{Role: domain.RoleUser, Content: userText},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: assistantText},
	)
	if len(h.Messages) > maxHistoryMessages {
		h.Messages = h.Messages[len(h.Messages)-maxHistoryMessages:]
	}
	h.UpdatedAt = s.now().UnixMilli()

	blob, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("repository: encode history: %w", err)
	}
	return s.put(ctx, historyKey(userID), blob)
}

// ClearHistory deletes a user's conversation log.
func (s *Store) ClearHistory(ctx context.Context, userID int64) error {
	return s.delete(ctx, historyKey(userID))
}

// MessagesForLLM returns the stored history plus the new user message, in the
// order the provider adapters expect.
func (s *Store) MessagesForLLM(ctx context.Context, userID int64, newText string) ([]domain.ChatMessage, error) {
	h, err := s.GetHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(h.Messages)+1)
	msgs = append(msgs, h.Messages...)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: newText})
	return msgs, nil
}
