package domain

// Student is the read-model slice of a platform user that the presence
// layer needs: display fields for mentor snapshots plus the owning
// mentor/group used for broadcast audience resolution.
type Student struct {
	StudentID string `json:"id" dynamodbav:"student_id"`
	FirstName string `json:"first_name" dynamodbav:"first_name"`
	LastName  string `json:"last_name" dynamodbav:"last_name"`
	Grade     string `json:"grade" dynamodbav:"grade"`
	Avatar    string `json:"avatar" dynamodbav:"avatar"`
	GroupID   string `json:"group_id" dynamodbav:"group_id"`
	MentorID  string `json:"mentor_id" dynamodbav:"mentor_id"`
}

type Mentor struct {
	MentorID  string `json:"id" dynamodbav:"mentor_id"`
	FirstName string `json:"first_name" dynamodbav:"first_name"`
	LastName  string `json:"last_name" dynamodbav:"last_name"`
	Email     string `json:"email" dynamodbav:"email"`
}
