// Package session holds chat transcripts keyed by session id.
package session

import (
	"context"

	"github.com/harunnryd/polaris/internal/model/contract"
)

// Store keeps one ordered transcript per session id. Get returns a copy that
// the caller may modify freely; ok is false when the session does not exist or
// has expired. Replace stores messages as the whole transcript, recreating the
// session if it was cleared, evicted or expired in the meantime.
type Store interface {
	Get(ctx context.Context, sessionID string) (messages []contract.Message, ok bool, err error)
	Append(ctx context.Context, sessionID string, messages ...contract.Message) error
	Replace(ctx context.Context, sessionID string, messages ...contract.Message) error
	Clear(ctx context.Context, sessionID string) error
}

// Sweeper is implemented by stores that expire entries lazily and can be asked
// to drop everything that is already stale.
type Sweeper interface {
	Sweep() int
}

// GetOrCreate returns the stored transcript, or a new one holding only the
// system prompt. created reports whether the transcript is new; a new
// transcript is not stored until the caller replaces it. A stored transcript
// that does not open with a system message gets the prompt put back in front.
func GetOrCreate(ctx context.Context, store Store, sessionID, systemPrompt string) (messages []contract.Message, created bool, err error) {
	messages, ok, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	system := contract.Message{Role: contract.RoleSystem, Content: systemPrompt}
	if !ok || len(messages) == 0 {
		return []contract.Message{system}, true, nil
	}
	if messages[0].Role != contract.RoleSystem {
		messages = append([]contract.Message{system}, messages...)
	}
	return messages, false, nil
}
