package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/orbitest-backend/internal/domain"
)

// GroupRepo provides read access to groups for the scheduler and the
// broadcast audience resolver.
type GroupRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewGroupRepo(client *dynamodb.Client, tableName string) *GroupRepo {
	return &GroupRepo{client: client, tableName: tableName}
}

func (r *GroupRepo) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("group_id", groupID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("group not found: %w", domain.ErrNotFound)
	}
	var g domain.Group
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
