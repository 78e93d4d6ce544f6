package llm

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMaxTurnsExceeded is returned by a Thread when the conversation hit
// its configured turn ceiling before producing a final response.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

// MessageOpt carries per-message options for a thread exchange
type MessageOpt struct {
	PromptCache        bool
	NoSaveConversation bool
}

// Thread is the conversation loop collaborator. Implementations own the
// actual model invocation; this module only drives them and reads back
// output and usage.
type Thread interface {
	SendMessage(ctx context.Context, message string, opt MessageOpt) (string, error)
	Usage() Usage
	GetConfig() Config
}
