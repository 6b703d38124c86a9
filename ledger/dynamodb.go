package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API used by the DynamoDB ledger.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

const (
	attrID          = "collection_id"
	attrName        = "name"
	attrDescription = "description"
	attrDimension   = "dimension"
	attrMetric      = "metric"
	attrIsPublic    = "is_public"
	attrRecordCount = "record_count"
	attrContentHash = "content_hash"
	attrCreated     = "created_at"
	attrUpdated     = "updated_at"
)

// DynamoDB is a Ledger backed by a DynamoDB table.
//
// Table schema:
//   - Partition key: collection_id (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecdb-collections \
//	  --attribute-definitions AttributeName=collection_id,AttributeType=S \
//	  --key-schema AttributeName=collection_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoDB struct {
	client    DDBClient
	tableName string
}

var _ Ledger = (*DynamoDB)(nil)

// NewDynamoDB creates a DynamoDB ledger on the given table.
func NewDynamoDB(client DDBClient, tableName string) *DynamoDB {
	return &DynamoDB{
		client:    client,
		tableName: tableName,
	}
}

func (d *DynamoDB) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

// CreateCollection implements Ledger.
func (d *DynamoDB) CreateCollection(ctx context.Context, info CollectionInfo) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      marshalInfo(info),
	})
	if err != nil {
		return fmt.Errorf("failed to put collection %s: %w", info.ID, err)
	}

	return nil
}

// UpdateCollection implements Ledger.
func (d *DynamoDB) UpdateCollection(ctx context.Context, update CollectionUpdate) error {
	updated := update.Updated
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(d.tableName),
		Key:              d.key(update.ID),
		UpdateExpression: aws.String("SET record_count = :rc, content_hash = :hash, updated_at = :updated"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rc":      &types.AttributeValueMemberN{Value: strconv.Itoa(update.RecordCount)},
			":hash":    &types.AttributeValueMemberS{Value: update.ContentHash},
			":updated": &types.AttributeValueMemberS{Value: formatTime(updated)},
		},
		ConditionExpression: aws.String("attribute_exists(collection_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to update collection %s: %w", update.ID, err)
	}

	return nil
}

// DeleteCollection implements Ledger.
func (d *DynamoDB) DeleteCollection(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", id, err)
	}

	return nil
}

// ListCollections implements Ledger. It scans the table, following
// pagination, and returns sorted IDs.
func (d *DynamoDB) ListCollections(ctx context.Context) ([]string, error) {
	var (
		ids       []string
		startFrom map[string]types.AttributeValue
	)

	for {
		resp, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.tableName),
			ProjectionExpression: aws.String(attrID),
			ExclusiveStartKey:    startFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB: %w", err)
		}

		for _, item := range resp.Items {
			if id, ok := item[attrID].(*types.AttributeValueMemberS); ok {
				ids = append(ids, id.Value)
			}
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}

		startFrom = resp.LastEvaluatedKey
	}

	slices.Sort(ids)

	return ids, nil
}

// GetCollection implements Ledger.
func (d *DynamoDB) GetCollection(ctx context.Context, id string) (CollectionInfo, error) {
	resp, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("failed to get collection %s: %w", id, err)
	}

	if len(resp.Item) == 0 {
		return CollectionInfo{}, ErrNotFound
	}

	return unmarshalInfo(resp.Item)
}

func marshalInfo(info CollectionInfo) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		attrID:          &types.AttributeValueMemberS{Value: info.ID},
		attrName:        &types.AttributeValueMemberS{Value: info.Name},
		attrDimension:   &types.AttributeValueMemberN{Value: strconv.Itoa(info.Dimension)},
		attrIsPublic:    &types.AttributeValueMemberBOOL{Value: info.IsPublic},
		attrRecordCount: &types.AttributeValueMemberN{Value: strconv.Itoa(info.RecordCount)},
		attrCreated:     &types.AttributeValueMemberS{Value: formatTime(info.Created)},
		attrUpdated:     &types.AttributeValueMemberS{Value: formatTime(info.Updated)},
	}

	// Optional fields are omitted when empty.
	if info.Description != "" {
		item[attrDescription] = &types.AttributeValueMemberS{Value: info.Description}
	}

	if info.Metric != "" {
		item[attrMetric] = &types.AttributeValueMemberS{Value: info.Metric}
	}

	if info.ContentHash != "" {
		item[attrContentHash] = &types.AttributeValueMemberS{Value: info.ContentHash}
	}

	return item
}

func unmarshalInfo(item map[string]types.AttributeValue) (CollectionInfo, error) {
	var (
		info CollectionInfo
		err  error
	)

	id, ok := item[attrID].(*types.AttributeValueMemberS)
	if !ok {
		return CollectionInfo{}, errors.New("invalid collection_id attribute in DynamoDB")
	}

	info.ID = id.Value
	info.Name = stringAttr(item, attrName)
	info.Description = stringAttr(item, attrDescription)
	info.Metric = stringAttr(item, attrMetric)
	info.ContentHash = stringAttr(item, attrContentHash)

	if b, ok := item[attrIsPublic].(*types.AttributeValueMemberBOOL); ok {
		info.IsPublic = b.Value
	}

	if info.Dimension, err = numberAttr(item, attrDimension); err != nil {
		return CollectionInfo{}, err
	}

	if info.RecordCount, err = numberAttr(item, attrRecordCount); err != nil {
		return CollectionInfo{}, err
	}

	if info.Created, err = timeAttr(item, attrCreated); err != nil {
		return CollectionInfo{}, err
	}

	if info.Updated, err = timeAttr(item, attrUpdated); err != nil {
		return CollectionInfo{}, err
	}

	return info, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}

	return ""
}

func numberAttr(item map[string]types.AttributeValue, name string) (int, error) {
	n, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}

	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return v, nil
}

func timeAttr(item map[string]types.AttributeValue, name string) (time.Time, error) {
	s := stringAttr(item, name)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
