package schema

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// ChatMessage is one entry of a session transcript. QuestionNumber links a user
// answer to the index of the question it answers.
type ChatMessage struct {
	ID             string `json:"id"`
	Role           Role   `json:"role"`
	Content        string `json:"content"`
	QuestionNumber *int   `json:"questionNumber,omitempty"`
}
