package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/orbitest-backend/internal/domain"
)

// MentorRepo provides read access to mentors for completion notices and
// platform-wide mentor announcements.
type MentorRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMentorRepo(client *dynamodb.Client, tableName string) *MentorRepo {
	return &MentorRepo{client: client, tableName: tableName}
}

func (r *MentorRepo) Get(ctx context.Context, mentorID string) (*domain.Mentor, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("mentor_id", mentorID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("mentor not found: %w", domain.ErrNotFound)
	}
	var m domain.Mentor
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListIDs returns every mentor id. Used only for system-wide announcements,
// where per-mentor dispatch failures are isolated by the caller.
func (r *MentorRepo) ListIDs(ctx context.Context) ([]string, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("mentor_id"),
	})
	if err != nil {
		return nil, err
	}
	var mentors []domain.Mentor
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &mentors); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(mentors))
	for i := range mentors {
		ids = append(ids, mentors[i].MentorID)
	}
	return ids, nil
}
