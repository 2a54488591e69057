package model

import (
	"github.com/cloudwego/eino/schema"
)

// State is the turn-scoped record threaded through the workflow graph.
// Concurrency model:
//   - A fresh State is created per user turn and never reused across turns.
//   - Nodes receive a State, Clone it, write their contribution to the clone
//     and return it. Nothing downstream observes a half-written State, which
//     keeps cached replays and tests deterministic.
//   - Turns running concurrently share only the cache store and the external
//     collaborators, never a State.
type State struct {
	// User input
	Question string `json:"question"`
	UserID   string `json:"user_id"`

	// ConversationID ties the turn to a persisted conversation thread.
	ConversationID string `json:"conversation_id"`

	// Context retrieved from the vector store
	Context []string `json:"context"`

	// SQL generation and execution
	NeedsSQL  bool   `json:"needs_sql"`
	LLMSQL    string `json:"llm_sql"`
	SQLResult string `json:"sql_result"`

	// Conversation history for this turn, append-only, trimmed to a bounded
	// window after each append.
	Messages []*schema.Message `json:"messages"`

	// Report generation
	Report     string `json:"report"`
	NeedsEmail bool   `json:"needs_email"`

	// Email delivery
	Email EmailState `json:"email_state"`
}

// EmailState tracks the email side of a turn. Requested mirrors NeedsEmail as
// a lightweight placeholder set by the report node; Result stays nil until the
// email node actually attempts delivery.
type EmailState struct {
	Requested bool         `json:"requested"`
	Result    *EmailResult `json:"result,omitempty"`
}

// EmailResult is the outcome of one delivery attempt.
type EmailResult struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
}

// Clone returns a copy of the state with its own slices, so a node can write
// its contribution without mutating what upstream nodes (or the caller's
// snapshot stream) already hold.
func (s *State) Clone() *State {
	next := *s
	if s.Context != nil {
		next.Context = make([]string, len(s.Context))
		copy(next.Context, s.Context)
	}
	if s.Messages != nil {
		next.Messages = make([]*schema.Message, len(s.Messages))
		copy(next.Messages, s.Messages)
	}
	if s.Email.Result != nil {
		r := *s.Email.Result
		next.Email.Result = &r
	}
	return &next
}

// AppendMessage appends a message and trims the history to the most recent
// window entries. window <= 0 keeps everything.
func (s *State) AppendMessage(msg *schema.Message, window int) {
	s.Messages = append(s.Messages, msg)
	if window > 0 && len(s.Messages) > window {
		s.Messages = s.Messages[len(s.Messages)-window:]
	}
}

// QueryInput is what a caller supplies to start a turn. Prior history is
// restored from the conversation repository by the runner, not the caller.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Question       string `json:"question"`
}

// TurnContext is the graph-local state registered via compose.WithGenLocalState.
// It carries thread identification for handlers and observers; all reads and
// writes happen inside Eino state handlers, which serialize access.
type TurnContext struct {
	ConversationID string
	UserID         string
	Steps          int
}

// TurnSnapshot is the full-turn record written to the query_cache namespace by
// the report node. NeedsEmail is stored for audit only; replays must recompute
// intent from the live question, never trust this field.
type TurnSnapshot struct {
	Question       string   `json:"question"`
	Context        []string `json:"context"`
	LLMSQL         string   `json:"llm_sql"`
	SQLResult      string   `json:"sql_result"`
	Report         string   `json:"report"`
	NeedsEmail     bool     `json:"needs_email"`
	EmailRequested bool     `json:"email_requested"`
}

// SQLOutput is the structured output contract for SQL generation: the model
// must return exactly one field, one statement, no prose.
type SQLOutput struct {
	SQLQuery string `json:"sql_query"`
}

// Document is one similarity-search hit, cached under the similarity namespace.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
