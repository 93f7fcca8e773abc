package store

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items by aggregate_id and evaluates the store's
// version condition the way DynamoDB would.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	puts  []*dynamodb.PutItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := in.Key["aggregate_id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)

	id := in.Item["aggregate_id"].(*types.AttributeValueMemberS).Value
	if existing, ok := f.items[id]; ok {
		stored, _ := strconv.Atoi(existing["version"].(*types.AttributeValueMemberN).Value)
		next, _ := strconv.Atoi(in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberN).Value)
		if stored > next {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoStore_Contract(t *testing.T) {
	runStoreContract(t, NewDynamoStore[testRoom](newFakeDynamo(), "rooms", "Room"))
}

func TestDynamoStore_PutUsesVersionCondition(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoStore[testRoom](fake, "rooms", "Room")

	require.NoError(t, s.Save(context.Background(), testRoom{ID: "room-1", Version: 7}))

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "rooms", aws.ToString(put.TableName))
	assert.Equal(t, "attribute_not_exists(aggregate_id) OR version <= :v", aws.ToString(put.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, put.ExpressionAttributeValues[":v"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Room"}, put.Item["aggregate_type"])
}
