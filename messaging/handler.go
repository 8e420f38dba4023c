package messaging

import (
	"context"
	"fmt"

	"github.com/ZaguanLabs/pagetl"
)

// Handle answers a background request with orch:
//
//   - START_TRANSLATION runs a translation and replies with the final
//     TRANSLATION_STATUS, or ERROR when the run failed or another run is
//     still in flight.
//   - GET_STATUS replies with the current TRANSLATION_STATUS.
//   - TRANSLATE_TEXT replies with TRANSLATED_TEXT.
//
// A START_TRANSLATION naming a target other than the orchestrator's is
// refused. Unknown message types produce an ERROR reply.
func Handle(ctx context.Context, orch *pagetl.Orchestrator, msg Message) Message {
	switch msg.Type {
	case TypeStartTranslation:
		return start(ctx, orch, msg.TargetLanguage)
	case TypeGetStatus:
		return Message{Type: TypeTranslationStatus, Status: orch.State()}
	case TypeTranslateText:
		res, err := orch.TranslateText(ctx, msg.Text)
		if err != nil {
			return Message{Type: TypeError, Error: err.Error()}
		}
		return TranslatedText(res)
	}
	return Message{Type: TypeError, Error: fmt.Sprintf("unsupported message type %q", msg.Type)}
}

func start(ctx context.Context, orch *pagetl.Orchestrator, target string) Message {
	if target != "" && !pagetl.SameLanguage(target, orch.TargetLanguage()) {
		return Message{Type: TypeError, Error: fmt.Sprintf("target language %s not served, translating into %s", target, orch.TargetLanguage())}
	}

	result, err := orch.Run(ctx)
	if err != nil {
		reply := Message{Type: TypeError, Error: err.Error()}
		if result != nil {
			reply.RunID = result.RunID
			reply.Status = result.Status
		}
		return reply
	}
	return Message{Type: TypeTranslationStatus, RunID: result.RunID, Status: result.Status}
}

// Background connects a client directly to orch. Every message goes
// through JSON as it would over a real channel.
func Background(orch *pagetl.Orchestrator) Transport {
	return roundTrip(func(ctx context.Context, msg Message) Message {
		return Handle(ctx, orch, msg)
	})
}
