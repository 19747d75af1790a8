package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo holds items by id and evaluates the two condition
// expressions DynamoStore issues.
type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func idOf(item map[string]types.AttributeValue) string {
	return item["id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[idOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}

	id := idOf(in.Item)
	current, exists := f.items[id]
	failed := &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(id)":
		if exists {
			return nil, failed
		}
	case "#v = :expected":
		want := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
		if !exists || current["version"].(*types.AttributeValueMemberN).Value != want {
			return nil, failed
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// ============================================
// DynamoDB Store Tests
// ============================================

func TestDynamoStore_Contract(t *testing.T) {
	repositoryContract(t, &DynamoStore{client: newFakeDynamo(), tableName: "snapshots", id: "test"})
}

func TestDynamoStore_FirstWritersRace(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamo()
	a := &DynamoStore{client: client, tableName: "snapshots", id: "test"}
	b := &DynamoStore{client: client, tableName: "snapshots", id: "test"}

	snapA, err := a.Load(ctx)
	require.NoError(t, err)
	snapB, err := b.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, snapA))
	err = b.Save(ctx, snapB)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Zero(t, snapB.Version)
}

func TestDynamoStore_PutErrorRestoresVersion(t *testing.T) {
	client := newFakeDynamo()
	client.putErr = errors.New("throttled")
	repo := &DynamoStore{client: client, tableName: "snapshots", id: "test"}
	snap := NewSnapshot()

	err := repo.Save(context.Background(), snap)

	assert.ErrorContains(t, err, "throttled")
	assert.NotErrorIs(t, err, ErrVersionConflict)
	assert.Zero(t, snap.Version)
}
