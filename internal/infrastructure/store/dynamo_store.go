package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps the snapshot as a single item. Writes are conditional
// PutItem calls on the version attribute.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	id        string
}

type dynamoSnapshot struct {
	ID        string `dynamodbav:"id"`
	Version   int64  `dynamodbav:"version"`
	Data      string `dynamodbav:"data"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoStore(client *dynamodb.Client, tableName, snapshotID string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, id: snapshotID}
}

// NewDynamoClient loads the default AWS config. A non-empty endpoint points
// the client at a local DynamoDB.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: s.id},
	}
}

func (s *DynamoStore) Load(ctx context.Context) (*Snapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get snapshot item: %w", err)
	}
	if len(out.Item) == 0 {
		return NewSnapshot(), nil
	}

	var item dynamoSnapshot
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot item: %w", err)
	}
	snap, err := decodeSnapshot([]byte(item.Data))
	if err != nil {
		return nil, err
	}
	snap.Version = item.Version
	return snap, nil
}

func (s *DynamoStore) Save(ctx context.Context, snap *Snapshot) error {
	expected := snap.Version
	snap.Version = expected + 1
	data, err := encodeSnapshot(snap)
	if err != nil {
		snap.Version = expected
		return err
	}

	av, err := attributevalue.MarshalMap(dynamoSnapshot{
		ID:        s.id,
		Version:   snap.Version,
		Data:      string(data),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		snap.Version = expected
		return fmt.Errorf("marshal snapshot item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if expected == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(id)")
	} else {
		input.ConditionExpression = aws.String("#v = :expected")
		input.ExpressionAttributeNames = map[string]string{"#v": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		snap.Version = expected
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrVersionConflict
		}
		return fmt.Errorf("put snapshot item: %w", err)
	}
	return nil
}
