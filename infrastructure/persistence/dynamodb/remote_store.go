// Package dynamodb implements the RemoteStore client against a single-table
// DynamoDB layout:
//
//	canvas       PK=USER#<userID>    SK=CANVAS#<canvasID>   (GSI1: CANVAS#<id> / METADATA)
//	node         PK=CANVAS#<id>      SK=NODE#<nodeID>
//	chat session PK=CANVAS#<id>      SK=CHAT#<sessionID>
//
// Every write is an upsert keyed by record id; canvas deletion is a soft
// delete filtered out of listings. All calls go through a circuit breaker so
// a flapping network trips fast instead of timing out on every periodic
// sync tick.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
)

const (
	gsi1Name      = "RecordIndex"
	metadataSK    = "METADATA"
	maxBatchItems = 25
)

// RemoteStore is the DynamoDB-backed ports.RemoteStore.
type RemoteStore struct {
	client    *dynamodb.Client
	tableName string
	breaker   *breaker
	logger    *zap.Logger
}

var _ ports.RemoteStore = (*RemoteStore)(nil)

// NewRemoteStore creates a client against tableName.
func NewRemoteStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *RemoteStore {
	return &RemoteStore{
		client:    client,
		tableName: tableName,
		breaker:   newBreaker("dynamodb-remote", logger),
		logger:    logger,
	}
}

type canvasItem struct {
	PK        string        `dynamodbav:"PK"`
	SK        string        `dynamodbav:"SK"`
	GSI1PK    string        `dynamodbav:"GSI1PK"`
	GSI1SK    string        `dynamodbav:"GSI1SK"`
	Record    canvas.Canvas `dynamodbav:"Record"`
	Deleted   bool          `dynamodbav:"Deleted"`
	UpdatedAt int64         `dynamodbav:"UpdatedAt"`
}

type nodeItem struct {
	PK        string      `dynamodbav:"PK"`
	SK        string      `dynamodbav:"SK"`
	Record    canvas.Node `dynamodbav:"Record"`
	UpdatedAt int64       `dynamodbav:"UpdatedAt"`
}

type chatItem struct {
	PK        string             `dynamodbav:"PK"`
	SK        string             `dynamodbav:"SK"`
	Record    canvas.ChatSession `dynamodbav:"Record"`
	UpdatedAt int64              `dynamodbav:"UpdatedAt"`
}

func canvasPK(userID string) string  { return "USER#" + userID }
func canvasSK(id string) string      { return "CANVAS#" + id }
func childPK(canvasID string) string { return "CANVAS#" + canvasID }
func nodeSK(id string) string        { return "NODE#" + id }
func chatSK(id string) string        { return "CHAT#" + id }

// GetAllCanvases lists the user's canvases, excluding soft-deleted ones.
func (r *RemoteStore) GetAllCanvases(ctx context.Context, userID string) ([]*canvas.Canvas, error) {
	var out []*canvas.Canvas
	err := r.breaker.execute(func() error {
		paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			FilterExpression:       aws.String("Deleted <> :deleted"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":      &types.AttributeValueMemberS{Value: canvasPK(userID)},
				":sk":      &types.AttributeValueMemberS{Value: "CANVAS#"},
				":deleted": &types.AttributeValueMemberBOOL{Value: true},
			},
		})
		out = nil
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("query canvases for user: %w", err)
			}
			for _, raw := range page.Items {
				var item canvasItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return fmt.Errorf("unmarshal canvas item: %w", err)
				}
				c := item.Record
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

// GetCanvas looks a canvas up by id alone via GSI1. Soft-deleted canvases
// read as absent.
func (r *RemoteStore) GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	item, err := r.findCanvasItem(ctx, id)
	if err != nil || item == nil || item.Deleted {
		return nil, err
	}
	c := item.Record
	return &c, nil
}

func (r *RemoteStore) findCanvasItem(ctx context.Context, id string) (*canvasItem, error) {
	var found *canvasItem
	err := r.breaker.execute(func() error {
		resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(gsi1Name),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: canvasSK(id)},
				":sk": &types.AttributeValueMemberS{Value: metadataSK},
			},
			Limit: aws.Int32(1),
		})
		if err != nil {
			return fmt.Errorf("query canvas %s: %w", id, err)
		}
		if len(resp.Items) == 0 {
			found = nil
			return nil
		}
		var item canvasItem
		if err := attributevalue.UnmarshalMap(resp.Items[0], &item); err != nil {
			return fmt.Errorf("unmarshal canvas %s: %w", id, err)
		}
		found = &item
		return nil
	})
	return found, err
}

// CreateCanvas writes a canvas row with server-generated timestamps. A
// non-empty id is honored so local and remote identifiers never diverge.
func (r *RemoteStore) CreateCanvas(ctx context.Context, userID, name, id string) (string, error) {
	if id == "" {
		id = canvas.NewCanvas(userID, name).ID
	}
	now := time.Now().UnixMilli()
	record := canvas.Canvas{
		ID:        id,
		UserID:    userID,
		Name:      name,
		NodeIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	item := canvasItem{
		PK:        canvasPK(userID),
		SK:        canvasSK(id),
		GSI1PK:    canvasSK(id),
		GSI1SK:    metadataSK,
		Record:    record,
		UpdatedAt: now,
	}
	raw, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", fmt.Errorf("marshal canvas %s: %w", id, err)
	}
	err = r.breaker.execute(func() error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      raw,
		})
		if err != nil {
			return fmt.Errorf("create canvas %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	r.logger.Debug("remote canvas created", zap.String("canvasID", id))
	return id, nil
}

// UpdateCanvas pushes a rename and refreshes the remote timestamp.
func (r *RemoteStore) UpdateCanvas(ctx context.Context, id, name string) error {
	item, err := r.findCanvasItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("update canvas %s: not found", id)
	}
	now := time.Now().UnixMilli()
	return r.breaker.execute(func() error {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: item.PK},
				"SK": &types.AttributeValueMemberS{Value: item.SK},
			},
			UpdateExpression: aws.String("SET Record.#n = :name, Record.UpdatedAt = :ts, UpdatedAt = :ts"),
			ExpressionAttributeNames: map[string]string{
				"#n": "Name",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":name": &types.AttributeValueMemberS{Value: name},
				":ts":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
			},
		})
		if err != nil {
			return fmt.Errorf("update canvas %s: %w", id, err)
		}
		return nil
	})
}

// DeleteCanvas soft-deletes: the row stays but vanishes from listings.
func (r *RemoteStore) DeleteCanvas(ctx context.Context, id string) error {
	item, err := r.findCanvasItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	return r.breaker.execute(func() error {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: item.PK},
				"SK": &types.AttributeValueMemberS{Value: item.SK},
			},
			UpdateExpression: aws.String("SET Deleted = :deleted, Record.Deleted = :deleted, UpdatedAt = :ts"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":deleted": &types.AttributeValueMemberBOOL{Value: true},
				":ts":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
			},
		})
		if err != nil {
			return fmt.Errorf("delete canvas %s: %w", id, err)
		}
		return nil
	})
}

// GetCanvasNodes returns every node row under the canvas partition.
func (r *RemoteStore) GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error) {
	var out []*canvas.Node
	err := r.breaker.execute(func() error {
		paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: childPK(canvasID)},
				":sk": &types.AttributeValueMemberS{Value: "NODE#"},
			},
		})
		out = nil
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("query nodes for %s: %w", canvasID, err)
			}
			for _, raw := range page.Items {
				var item nodeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return fmt.Errorf("unmarshal node item: %w", err)
				}
				n := item.Record
				out = append(out, &n)
			}
		}
		return nil
	})
	return out, err
}

// BulkUpsertNodes replaces each node row keyed by node id, in batches of 25
// with unprocessed-item retries. A failure anywhere reports the whole batch
// as failed; the engine queues one retry for the entire canvas.
func (r *RemoteStore) BulkUpsertNodes(ctx context.Context, userID, canvasID string, nodes []*canvas.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	writes := make([]types.WriteRequest, 0, len(nodes))
	for _, n := range nodes {
		record := *n
		record.UserID = userID
		record.CanvasID = canvasID
		raw, err := attributevalue.MarshalMap(nodeItem{
			PK:        childPK(canvasID),
			SK:        nodeSK(n.ID),
			Record:    record,
			UpdatedAt: n.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal node %s: %w", n.ID, err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: raw}})
	}

	for start := 0; start < len(writes); start += maxBatchItems {
		end := start + maxBatchItems
		if end > len(writes) {
			end = len(writes)
		}
		if err := r.writeBatch(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	r.logger.Debug("nodes upserted",
		zap.String("canvasID", canvasID),
		zap.Int("count", len(nodes)),
	)
	return nil
}

func (r *RemoteStore) writeBatch(ctx context.Context, writes []types.WriteRequest) error {
	pending := writes
	const maxAttempts = 4
	for attempt := 0; attempt < maxAttempts && len(pending) > 0; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		var unprocessed []types.WriteRequest
		err := r.breaker.execute(func() error {
			resp, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: pending},
			})
			if err != nil {
				return fmt.Errorf("batch write: %w", err)
			}
			unprocessed = resp.UnprocessedItems[r.tableName]
			return nil
		})
		if err != nil {
			return err
		}
		pending = unprocessed
	}
	if len(pending) > 0 {
		return fmt.Errorf("batch write: %d items unprocessed after retries", len(pending))
	}
	return nil
}

// GetChatSessions returns every chat session row under the canvas partition.
func (r *RemoteStore) GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error) {
	var out []*canvas.ChatSession
	err := r.breaker.execute(func() error {
		paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: childPK(canvasID)},
				":sk": &types.AttributeValueMemberS{Value: "CHAT#"},
			},
		})
		out = nil
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("query chat sessions for %s: %w", canvasID, err)
			}
			for _, raw := range page.Items {
				var item chatItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return fmt.Errorf("unmarshal chat item: %w", err)
				}
				sess := item.Record
				out = append(out, &sess)
			}
		}
		return nil
	})
	return out, err
}

// SaveChatSession upserts the whole session document keyed by id.
func (r *RemoteStore) SaveChatSession(ctx context.Context, userID, canvasID string, sess *canvas.ChatSession) error {
	record := *sess
	record.UserID = userID
	record.CanvasID = canvasID
	raw, err := attributevalue.MarshalMap(chatItem{
		PK:        childPK(canvasID),
		SK:        chatSK(sess.ID),
		Record:    record,
		UpdatedAt: sess.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal chat session %s: %w", sess.ID, err)
	}
	return r.breaker.execute(func() error {
		_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      raw,
		})
		if err != nil {
			return fmt.Errorf("save chat session %s: %w", sess.ID, err)
		}
		return nil
	})
}
