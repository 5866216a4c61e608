package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/orbitest-backend/internal/domain"
)

// ExamRepo provides the deadline scheduler's read/write access to exams.
type ExamRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewExamRepo(client *dynamodb.Client, tableName string) *ExamRepo {
	return &ExamRepo{client: client, tableName: tableName}
}

// ListOpenWithDeadline returns every exam that is not completed and has a
// deadline set. The scheduler tick rescans the full set each run, so a
// filtered scan is acceptable here (exam counts are small compared to
// notification volume).
func (r *ExamRepo) ListOpenWithDeadline(ctx context.Context) ([]domain.Exam, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#st <> :completed AND attribute_exists(exam_end)"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: string(domain.ExamCompleted)},
		},
	})
	if err != nil {
		return nil, err
	}
	var exams []domain.Exam
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *ExamRepo) Update(ctx context.Context, examID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("exam_id", examID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
