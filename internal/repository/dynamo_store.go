package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/clockout/clockout/internal/models"
	"github.com/sirupsen/logrus"
)

// DynamoStore keeps timer settings in a single DynamoDB table, one item
// per tenant under PK TIMER#<slug> / SK SETTINGS.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

type timerItem struct {
	Slug   string `dynamodbav:"Slug"`
	Hour   int    `dynamodbav:"Hour"`
	Minute int    `dynamodbav:"Minute"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) (*DynamoStore, error) {
	store := &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}

	if err := store.bootstrap(context.Background()); err != nil {
		return nil, err
	}

	logger.WithField("table", tableName).Info("DynamoDB timer store initialized")
	return store, nil
}

func timerKey(tenant models.Tenant) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("TIMER#%s", tenant)},
		"SK": &types.AttributeValueMemberS{Value: "SETTINGS"},
	}
}

func timerAttributes(tenant models.Tenant, hour, minute int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: fmt.Sprintf("TIMER#%s", tenant)},
		"SK":     &types.AttributeValueMemberS{Value: "SETTINGS"},
		"Slug":   &types.AttributeValueMemberS{Value: tenant.String()},
		"Hour":   &types.AttributeValueMemberN{Value: strconv.Itoa(hour)},
		"Minute": &types.AttributeValueMemberN{Value: strconv.Itoa(minute)},
	}
}

// bootstrap writes the default target for every tenant that has no item
// yet. The conditional put keeps existing settings intact.
func (s *DynamoStore) bootstrap(ctx context.Context) error {
	for _, tenant := range models.Tenants() {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.tableName),
			Item:                timerAttributes(tenant, models.DefaultHour, models.DefaultMinute),
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})

		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				continue
			}
			return fmt.Errorf("failed to seed timer setting for %s: %w", tenant, err)
		}
	}

	return nil
}

func (s *DynamoStore) Get(ctx context.Context, tenant models.Tenant) (models.TimerSetting, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       timerKey(tenant),
	})

	if err != nil {
		s.logger.WithError(err).Error("Failed to read timer setting from DynamoDB")
		return models.TimerSetting{}, fmt.Errorf("failed to get timer setting: %w", err)
	}

	if result.Item == nil {
		return models.TimerSetting{}, ErrNotFound
	}

	var item timerItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return models.TimerSetting{}, fmt.Errorf("failed to unmarshal timer setting: %w", err)
	}

	return models.TimerSetting{Tenant: tenant, Hour: item.Hour, Minute: item.Minute}, nil
}

func (s *DynamoStore) Set(ctx context.Context, tenant models.Tenant, hour, minute int) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      timerAttributes(tenant, hour, minute),
	})

	if err != nil {
		s.logger.WithError(err).Error("Failed to write timer setting to DynamoDB")
		return fmt.Errorf("failed to set timer setting: %w", err)
	}

	return nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

func (s *DynamoStore) Close() error {
	return nil
}
