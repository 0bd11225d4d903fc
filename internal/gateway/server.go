package gateway

import (
	"context"

	"critbot/internal/messaging"
)

// Generator produces critique text.
type Generator interface {
	Generate(ctx context.Context, provider, model, apiKey, prompt string) (string, error)
}

// Serve registers g as the generateCritique handler on bus. Errors never cross
// the bus as Go errors; they become Reply.Error.
func Serve(bus *messaging.Bus, g Generator) {
	bus.Handle(messaging.ActionGenerateCritique, func(ctx context.Context, msg messaging.Message) messaging.Reply {
		text, err := g.Generate(ctx, msg.Provider, msg.Model, msg.APIKey, msg.Prompt)
		if err != nil {
			return messaging.ErrorReply(err)
		}
		return messaging.Reply{Text: text}
	})
}
