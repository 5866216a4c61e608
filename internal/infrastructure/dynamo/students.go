package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/orbitest-backend/internal/domain"
)

// dynamoBatchGetMax is the BatchGetItem hard limit per request.
const dynamoBatchGetMax = 100

// StudentRepo provides read access to the student directory. The presence
// layer uses it to enrich mentor snapshots and to resolve a student's
// mentor for targeted broadcasts.
type StudentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewStudentRepo(client *dynamodb.Client, tableName string) *StudentRepo {
	return &StudentRepo{client: client, tableName: tableName}
}

func (r *StudentRepo) Get(ctx context.Context, studentID string) (*domain.Student, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("student_id", studentID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("student not found: %w", domain.ErrNotFound)
	}
	var s domain.Student
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByIDs fetches a batch of students. Unknown ids are silently skipped,
// matching the snapshot semantics: a stale presence entry should not fail
// the whole snapshot.
func (r *StudentRepo) GetByIDs(ctx context.Context, studentIDs []string) ([]domain.Student, error) {
	var students []domain.Student
	for start := 0; start < len(studentIDs); start += dynamoBatchGetMax {
		end := start + dynamoBatchGetMax
		if end > len(studentIDs) {
			end = len(studentIDs)
		}
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range studentIDs[start:end] {
			keys = append(keys, strKey("student_id", id))
		}
		out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				r.tableName: {Keys: keys},
			},
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Student
		if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.tableName], &page); err != nil {
			return nil, err
		}
		students = append(students, page...)
	}
	return students, nil
}
