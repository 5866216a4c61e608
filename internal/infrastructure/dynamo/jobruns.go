package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/orbitest-backend/internal/domain"
)

// JobRunRepo persists the scheduler's bookkeeping ledger.
type JobRunRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewJobRunRepo(client *dynamodb.Client, tableName string) *JobRunRepo {
	return &JobRunRepo{client: client, tableName: tableName}
}

func (r *JobRunRepo) Put(ctx context.Context, run *domain.JobRun) error {
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("marshal job run: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// DeleteOlderThan removes ledger entries whose run started before the
// cutoff and returns how many were deleted.
func (r *JobRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("started_at < :cutoff"),
		ProjectionExpression: aws.String("job_run_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range out.Items {
		var run domain.JobRun
		if err := attributevalue.UnmarshalMap(item, &run); err != nil {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("job_run_id", run.JobRunID),
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
