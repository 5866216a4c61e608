package domain

type Group struct {
	GroupID        string   `json:"id" dynamodbav:"group_id"`
	Name           string   `json:"name" dynamodbav:"name"`
	Describe       string   `json:"describe" dynamodbav:"describe"`
	MentorID       string   `json:"mentor_id" dynamodbav:"mentor_id"`
	StudentIDs     []string `json:"student_ids" dynamodbav:"student_ids"`
	TelegramChatID string   `json:"telegram_chat_id" dynamodbav:"telegram_chat_id"` // empty when the group is not linked to a chat
	ParentsChatID  string   `json:"parents_chat_id" dynamodbav:"parents_chat_id"`
	ParentPhones   []string `json:"parent_phones" dynamodbav:"parent_phones"` // SMS recipients for completion notices
}
