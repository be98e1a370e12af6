package chat

import (
	"context"
	"fmt"
	"time"
)

// Export is the downloadable chat snapshot. The field names are contractual;
// timestamp is serialized as ISO8601 by encoding/json's time handling.
type Export struct {
	Model     string      `json:"model"`
	Config    ModelConfig `json:"config"`
	Messages  []Message   `json:"messages"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportSession snapshots a session without mutating it.
func (s *Service) ExportSession(ctx context.Context, userID uint64, sessionID string) (*Export, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListAllMessagesAsc(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []Message{}
	}

	return &Export{
		Model:     sess.Model,
		Config:    sess.Config,
		Messages:  msgs,
		Timestamp: time.Now(),
	}, nil
}

func ExportFilename(at time.Time) string {
	return fmt.Sprintf("chat-export-%d.json", at.UnixMilli())
}
