package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ammiranda/treepath/models"
)

// DefaultTableName is the DynamoDB table used when none is configured
const DefaultTableName = "TreeCache"

const generationKey = "generation"

// DynamoDBAPI defines the interface for DynamoDB operations
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBCache implements Provider using DynamoDB.
//
// A table has no cheap "delete everything", so entries are namespaced by a
// generation number kept in its own item. Invalidate bumps the generation and
// the old entries become unreachable; they are deleted lazily on read or
// dropped by the table's TTL attribute.
type DynamoDBCache struct {
	client DynamoDBAPI
	table  string

	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
}

// cacheItem is the stored form of one rendering
type cacheItem struct {
	Key       string `dynamodbav:"key"`
	Data      string `dynamodbav:"data"`
	Timestamp int64  `dynamodbav:"timestamp"`
	TTL       int64  `dynamodbav:"ttl"`
}

type generationItem struct {
	Key        string `dynamodbav:"key"`
	Generation string `dynamodbav:"generation"`
}

// NewDynamoDBCache creates a DynamoDB cache provider using the default AWS
// credential chain
func NewDynamoDBCache(ctx context.Context, table string) (*DynamoDBCache, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewDynamoDBCacheWithClient(dynamodb.NewFromConfig(cfg), table), nil
}

// NewDynamoDBCacheWithClient creates a new DynamoDB cache provider with a custom client
func NewDynamoDBCacheWithClient(client DynamoDBAPI, table string) *DynamoDBCache {
	if table == "" {
		table = DefaultTableName
	}
	return &DynamoDBCache{
		client: client,
		table:  table,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Initialize creates the DynamoDB table if it doesn't exist
func (c *DynamoDBCache) Initialize(ctx context.Context) error {
	_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("error describing table %s: %w", c.table, err)
	}

	_, err = c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(c.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("error creating table %s: %w", c.table, err)
	}
	return nil
}

// Get retrieves a rendering from the current generation
func (c *DynamoDBCache) Get(ctx context.Context, key string) ([]*models.TreeNode, bool) {
	generation, err := c.generation(ctx)
	if err != nil {
		return nil, false
	}
	itemKey := entryKey(generation, key)

	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key:       keyAttribute(itemKey),
	})
	if err != nil || result.Item == nil {
		return nil, false
	}

	var item cacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false
	}

	if c.now().Unix() > item.TTL {
		// Expired; best effort cleanup
		c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(c.table),
			Key:       keyAttribute(itemKey),
		})
		return nil, false
	}

	var nodes []*models.TreeNode
	if err := json.Unmarshal([]byte(item.Data), &nodes); err != nil {
		return nil, false
	}
	return nodes, true
}

// Set stores a rendering in the current generation
func (c *DynamoDBCache) Set(ctx context.Context, key string, nodes []*models.TreeNode) {
	generation, err := c.generation(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return
	}

	c.mu.RLock()
	ttl := c.ttl
	c.mu.RUnlock()

	now := c.now()
	av, err := attributevalue.MarshalMap(cacheItem{
		Key:       entryKey(generation, key),
		Data:      string(data),
		Timestamp: now.Unix(),
		TTL:       now.Add(ttl).Unix(),
	})
	if err != nil {
		return
	}
	c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      av,
	})
}

// Invalidate starts a new generation, orphaning every current entry
func (c *DynamoDBCache) Invalidate(ctx context.Context) error {
	av, err := attributevalue.MarshalMap(generationItem{
		Key:        generationKey,
		Generation: strconv.FormatInt(c.now().UnixNano(), 10),
	})
	if err != nil {
		return err
	}
	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("error bumping cache generation: %w", err)
	}
	return nil
}

// SetTTL sets the cache time-to-live duration
func (c *DynamoDBCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// generation returns the current generation, "0" before the first
// invalidation
func (c *DynamoDBCache) generation(ctx context.Context) (string, error) {
	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key:       keyAttribute(generationKey),
	})
	if err != nil {
		return "", err
	}
	if result.Item == nil {
		return "0", nil
	}
	var item generationItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", err
	}
	return item.Generation, nil
}

func entryKey(generation, key string) string {
	return generation + "#" + key
}

func keyAttribute(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}
