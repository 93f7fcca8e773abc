package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps one snapshot item per aggregate, keyed by aggregate_id.
type DynamoStore[T Aggregate] struct {
	client    DynamoAPI
	tableName string
	codec     Codec[T]
}

// dynamoSnapshot represents the DynamoDB item structure for snapshots
type dynamoSnapshot struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	Version       int    `dynamodbav:"version"`
	State         string `dynamodbav:"state"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func NewDynamoStore[T Aggregate](client DynamoAPI, tableName, aggregateType string) *DynamoStore[T] {
	return &DynamoStore[T]{client: client, tableName: tableName, codec: NewCodec[T](aggregateType)}
}

func (s *DynamoStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"aggregate_id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return zero, false, fmt.Errorf("failed to get %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return zero, false, nil
	}

	var item dynamoSnapshot
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)

	agg, err := s.codec.Restore(Snapshot{
		AggregateID:   item.AggregateID,
		AggregateType: item.AggregateType,
		Version:       item.Version,
		State:         []byte(item.State),
		CreatedAt:     createdAt,
	})
	if err != nil {
		return zero, false, err
	}
	return agg, true, nil
}

func (s *DynamoStore[T]) Save(ctx context.Context, agg T) error {
	snap, err := s.codec.Snapshot(agg)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(dynamoSnapshot{
		AggregateID:   snap.AggregateID,
		AggregateType: snap.AggregateType,
		Version:       snap.Version,
		State:         string(snap.State),
		CreatedAt:     snap.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Conditional write keeps versions from moving backwards.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) OR version <= :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.Itoa(snap.Version)},
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s version %d", ErrStaleVersion, snap.AggregateID, snap.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}
