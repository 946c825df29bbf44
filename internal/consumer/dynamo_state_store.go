package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	commonconfig "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// DynamoAPI 状态存储用到的 DynamoDB 操作
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// dynamoStateItem 表中一行，version 用于条件写
type dynamoStateItem struct {
	StateKey           string   `dynamodbav:"stateKey"`
	ConsecutiveCount   int      `dynamodbav:"consecutiveCount"`
	LastValue          *float64 `dynamodbav:"lastValue"`
	Locked             bool     `dynamodbav:"locked"`
	LastAlertTimestamp *int64   `dynamodbav:"lastAlertTimestamp"`
	Version            int64    `dynamodbav:"version"`

	// rawVersion 读到的原始 version 属性，损坏行按它做条件覆盖
	rawVersion types.AttributeValue
}

func (it *dynamoStateItem) state() *models.AlertState {
	return &models.AlertState{
		ConsecutiveCount:   it.ConsecutiveCount,
		LastValue:          it.LastValue,
		Locked:             it.Locked,
		LastAlertTimestamp: it.LastAlertTimestamp,
	}
}

// NewDynamoClient 按配置创建 DynamoDB 客户端，Endpoint 非空时指向本地 DynamoDB
func NewDynamoClient(ctx context.Context, cfg *commonconfig.DynamoConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// DynamoStateStore 基于 DynamoDB 的告警状态存储（主键 stateKey）
type DynamoStateStore struct {
	client    DynamoAPI
	tableName string
	logger    *zap.Logger
}

// NewDynamoStateStore 创建 DynamoDB 状态存储
func NewDynamoStateStore(client DynamoAPI, tableName string, logger *zap.Logger) *DynamoStateStore {
	return &DynamoStateStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (s *DynamoStateStore) keyAttr(deviceID, metric string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"stateKey": &types.AttributeValueMemberS{Value: models.StateKey(deviceID, metric)},
	}
}

// load 读取一行，不存在返回 (nil, nil)
func (s *DynamoStateStore) load(ctx context.Context, deviceID, metric string) (*dynamoStateItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyAttr(deviceID, metric),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get state item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item dynamoStateItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		corrupt := &dynamoStateItem{rawVersion: out.Item["version"]}
		if corrupt.rawVersion != nil {
			_ = attributevalue.Unmarshal(corrupt.rawVersion, &corrupt.Version)
		}
		return corrupt, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	item.rawVersion = out.Item["version"]
	if item.ConsecutiveCount < 0 {
		return &item, fmt.Errorf("%w: negative consecutiveCount %d", ErrCorruptState, item.ConsecutiveCount)
	}
	return &item, nil
}

// Get 获取状态
func (s *DynamoStateStore) Get(ctx context.Context, deviceID, metric string) (*models.AlertState, error) {
	item, err := s.load(ctx, deviceID, metric)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrStateNotFound
	}
	return item.state(), nil
}

func (s *DynamoStateStore) put(ctx context.Context, deviceID, metric string, state *models.AlertState, version int64, condition *string, values map[string]types.AttributeValue) error {
	item := dynamoStateItem{
		StateKey:           models.StateKey(deviceID, metric),
		ConsecutiveCount:   state.ConsecutiveCount,
		LastValue:          state.LastValue,
		Locked:             state.Locked,
		LastAlertTimestamp: state.LastAlertTimestamp,
		Version:            version,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal state item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: condition,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	_, err = s.client.PutItem(ctx, input)
	return err
}

// Set 无条件写入状态
func (s *DynamoStateStore) Set(ctx context.Context, deviceID, metric string, state *models.AlertState) error {
	var version int64
	item, err := s.load(ctx, deviceID, metric)
	if err == nil && item != nil {
		version = item.Version
	}
	if err := s.put(ctx, deviceID, metric, state, version+1, nil, nil); err != nil {
		return fmt.Errorf("failed to put state item: %w", err)
	}
	return nil
}

// Update 基于 version 属性的条件写，冲突时重读重试
func (s *DynamoStateStore) Update(ctx context.Context, deviceID, metric string, fn UpdateFunc) error {
	key := models.StateKey(deviceID, metric)

	for i := 0; i < maxCASRetries; i++ {
		item, err := s.load(ctx, deviceID, metric)
		var current *models.AlertState
		corrupt := false
		switch {
		case errors.Is(err, ErrCorruptState):
			corrupt = true
			s.logger.Warn("Discarding corrupt alert state",
				zap.String("key", key),
				zap.Error(err),
			)
		case err != nil:
			return err
		case item != nil:
			current = item.state()
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		var (
			condition *string
			values    map[string]types.AttributeValue
			version   int64
		)
		switch {
		case corrupt && item.rawVersion != nil:
			// 损坏的行只在未被其他写者改动时覆盖
			version = item.Version
			condition = aws.String("version = :v")
			values = map[string]types.AttributeValue{":v": item.rawVersion}
		case corrupt:
			condition = aws.String("attribute_exists(stateKey) AND attribute_not_exists(version)")
		case item == nil:
			condition = aws.String("attribute_not_exists(stateKey)")
		default:
			version = item.Version
			condition = aws.String("version = :v")
			values = map[string]types.AttributeValue{
				":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", item.Version)},
			}
		}

		err = s.put(ctx, deviceID, metric, next, version+1, condition, values)
		if err == nil {
			return nil
		}

		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			s.logger.Debug("Alert state changed concurrently, retrying",
				zap.String("key", key),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return fmt.Errorf("failed to put state item: %w", err)
	}

	return fmt.Errorf("%w: %s", ErrConflict, key)
}
