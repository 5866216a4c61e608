package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/orbitest-backend/internal/domain"
)

// subjectCreatedIndex is the GSI used for per-subject queries. The sort key
// is created_at, so reverse-order queries come back newest first.
const subjectCreatedIndex = "subject_id-created_at-index"

// NotificationRepo provides typed DynamoDB operations for one notification
// table. Student and mentor notifications share the record shape, so the
// same repo type serves both — one instance per table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListBySubject queries the subject GSI newest-first. An empty status skips
// the status filter; limit <= 0 means no limit.
func (r *NotificationRepo) ListBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus, limit int32) ([]domain.Notification, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(subjectCreatedIndex),
		KeyConditionExpression: aws.String("subject_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: subjectID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if status != "" {
		input.FilterExpression = aws.String("#st = :status")
		input.ExpressionAttributeNames = map[string]string{"#st": "status"}
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(status)}
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountBySubject counts the subject's notifications with the given status
// without materialising the records.
func (r *NotificationRepo) CountBySubject(ctx context.Context, subjectID string, status domain.NotificationStatus) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(subjectCreatedIndex),
		KeyConditionExpression: aws.String("subject_id = :sid"),
		FilterExpression:       aws.String("#st = :status"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid":    &types.AttributeValueMemberS{Value: subjectID},
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// MarkViewed flips a single notification to viewed and returns the updated
// record. The write is a blind overwrite, so repeated calls are idempotent.
func (r *NotificationRepo) MarkViewed(ctx context.Context, notificationID string) (*domain.Notification, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{"status": string(domain.StatusViewed)})
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(notification_id)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllViewed flips every pending notification of the subject to viewed
// and returns how many records changed.
func (r *NotificationRepo) MarkAllViewed(ctx context.Context, subjectID string) (int, error) {
	pending, err := r.ListBySubject(ctx, subjectID, domain.StatusPending, 0)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range pending {
		if _, err := r.MarkViewed(ctx, pending[i].NotificationID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// DeleteViewed removes every viewed notification of the subject and returns
// how many records were deleted.
func (r *NotificationRepo) DeleteViewed(ctx context.Context, subjectID string) (int, error) {
	viewed, err := r.ListBySubject(ctx, subjectID, domain.StatusViewed, 0)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range viewed {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("notification_id", viewed[i].NotificationID),
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
