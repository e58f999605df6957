package domain

// CompletionStatus is the outcome of one completion attempt.
type CompletionStatus int

const (
	CompletionOK CompletionStatus = iota
	CompletionTooLong
	CompletionInvalidRequest
	CompletionOtherError
	CompletionModerationFlagged
	CompletionModerationBlocked
)

func (s CompletionStatus) String() string {
	switch s {
	case CompletionOK:
		return "ok"
	case CompletionTooLong:
		return "too_long"
	case CompletionInvalidRequest:
		return "invalid_request"
	case CompletionOtherError:
		return "other_error"
	case CompletionModerationFlagged:
		return "moderation_flagged"
	case CompletionModerationBlocked:
		return "moderation_blocked"
	default:
		return "unknown"
	}
}

// CompletionData is produced once per attempt and consumed once by the dispatcher.
type CompletionData struct {
	Status     CompletionStatus
	ReplyText  string
	StatusText string
}

// CompletionRequest is what the completion backend receives.
type CompletionRequest struct {
	Prompt    string
	Config    GenerationConfig
	Stop      []string
	LogitBias map[string]int
	User      string
}

// DefaultLogitBias bans the colon tokens (":" and " :" in the GPT-2/p50k vocabulary) so the model can't open
// a new "speaker:" turn inside its reply.
func DefaultLogitBias() map[string]int {
	return map[string]int{
		"25":   -100,
		"1058": -100,
	}
}
