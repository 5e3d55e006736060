package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/guardian/internal/prompts"
)

// Completer sends a system and a user message to the language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Completion is the outcome of one language model call. Err is set when the
// call failed; Text is then empty.
type Completion struct {
	Text string
	Err  error
}

// String renders the completion the way it is shown to API clients: the text
// on success, otherwise "Error: <message>".
func (c Completion) String() string {
	if c.Err != nil {
		return fmt.Sprintf("Error: %s", c.Err.Error())
	}
	return c.Text
}

// Inference pairs the model client with the prompt set.
type Inference struct {
	llm     Completer
	prompts *prompts.Set
}

func NewInference(llm Completer, set *prompts.Set) *Inference {
	if set == nil {
		set = prompts.Default()
	}
	return &Inference{llm: llm, prompts: set}
}

// Prompts returns the prompt set used for every call.
func (i *Inference) Prompts() *prompts.Set {
	return i.prompts
}

// Run asks question against a context block under the Guardian system prompt.
func (i *Inference) Run(ctx context.Context, question, contextText string) Completion {
	user, err := i.prompts.User(contextText, question)
	if err != nil {
		return Completion{Err: err}
	}

	text, err := i.llm.Complete(ctx, i.prompts.System, user)
	if err != nil {
		return Completion{Err: err}
	}
	return Completion{Text: text}
}
