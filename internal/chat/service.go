package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"gorm.io/gorm"
)

const defaultModel = "gpt-4"

// ErrStaleRequest marks a completion whose send was superseded by a newer one
// in the same session. The assistant reply is discarded, never appended.
var ErrStaleRequest = errors.New("chat: request superseded by a newer send")

type Service struct {
	repo       *Repo
	dispatcher *dispatch.Dispatcher

	// flights tracks in-flight completion requests per session. A session's
	// reply is appended only when its request id is still the latest issued,
	// which makes rapid double-submission well defined: last send wins.
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	latest  uint64
	pending bool
}

func NewService(repo *Repo, dispatcher *dispatch.Dispatcher) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		flights:    make(map[string]*flight),
	}
}

func (s *Service) CreateSession(ctx context.Context, userID uint64, model string) (*Session, error) {
	if model == "" {
		model = defaultModel
	}
	if _, ok := LookupModel(model); !ok {
		return nil, common.NewValidationError("model", "unknown model")
	}

	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		SessionID: sid,
		UserID:    userID,
		Model:     model,
		Config:    DefaultConfig(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) ownedSession(ctx context.Context, userID uint64, sessionID string) (*Session, error) {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return sess, nil
}

func (s *Service) beginRequest(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[sessionID]
	if !ok {
		f = &flight{}
		s.flights[sessionID] = f
	}
	f.latest++
	f.pending = true
	return f.latest
}

// endRequest resolves request id for the session. It reports whether the id is
// still the latest; stale resolutions leave the pending flag to the newer one.
func (s *Service) endRequest(sessionID string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[sessionID]
	if !ok || f.latest != id {
		return false
	}
	f.pending = false
	return true
}

// Pending reports whether the session has an unresolved completion in flight.
func (s *Service) Pending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[sessionID]
	return ok && f.pending
}

// Send appends the user message, dispatches a mock completion, and appends the
// assistant reply. The user message is inserted before the dispatch begins, so
// it always precedes its reply in the log. Blank input is refused without
// touching the log.
func (s *Service) Send(ctx context.Context, userID uint64, sessionID string, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.NewValidationError("message", "message must not be empty")
	}

	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleUser,
		Content:   content,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	reqID := s.beginRequest(sessionID)

	res, err := s.dispatcher.Chat(ctx, s.chatRequest(sess, content))
	if !s.endRequest(sessionID, reqID) {
		return nil, ErrStaleRequest
	}
	if err != nil {
		return nil, err
	}

	return s.insertAssistant(ctx, sess, res)
}

func (s *Service) chatRequest(sess *Session, prompt string) dispatch.ChatRequest {
	name := sess.Model
	if m, ok := LookupModel(sess.Model); ok {
		name = m.Name
	}
	return dispatch.ChatRequest{
		ModelName:   name,
		Prompt:      prompt,
		Temperature: sess.Config.Temperature,
		MaxTokens:   sess.Config.MaxTokens,
		TopP:        sess.Config.TopP,
	}
}

func (s *Service) insertAssistant(ctx context.Context, sess *Session, res dispatch.ChatResult) (*Message, error) {
	model := sess.Model
	tokens := res.Tokens
	assistantMsg := &Message{
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
		Role:      RoleAssistant,
		Content:   res.Content,
		Model:     &model,
		Tokens:    &tokens,
	}
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, userID, sessionID, limit, beforeID)
}

// Clear empties the message log. A still-pending completion is not cancelled;
// its reply is appended when it resolves.
func (s *Service) Clear(ctx context.Context, userID uint64, sessionID string) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.repo.DeleteMessages(ctx, userID, sessionID)
}

func (s *Service) UpdateModel(ctx context.Context, userID uint64, sessionID, model string) error {
	if _, ok := LookupModel(model); !ok {
		return common.NewValidationError("model", "unknown model")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.repo.UpdateSessionModel(ctx, sessionID, model)
}

type ConfigPatch struct {
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	SystemPrompt     *string  `json:"system_prompt"`
}

// UpdateConfig merges the patch into the session config, validating ranges.
func (s *Service) UpdateConfig(ctx context.Context, userID uint64, sessionID string, patch ConfigPatch) (ModelConfig, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return ModelConfig{}, err
	}

	cfg := sess.Config
	if patch.Temperature != nil {
		if *patch.Temperature < 0 || *patch.Temperature > 2 {
			return ModelConfig{}, common.NewValidationError("temperature", "temperature must be in [0,2]")
		}
		cfg.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		if *patch.MaxTokens < 1 || *patch.MaxTokens > 4096 {
			return ModelConfig{}, common.NewValidationError("max_tokens", "max_tokens must be in [1,4096]")
		}
		cfg.MaxTokens = *patch.MaxTokens
	}
	if patch.TopP != nil {
		if *patch.TopP < 0 || *patch.TopP > 1 {
			return ModelConfig{}, common.NewValidationError("top_p", "top_p must be in [0,1]")
		}
		cfg.TopP = *patch.TopP
	}
	if patch.FrequencyPenalty != nil {
		if *patch.FrequencyPenalty < -2 || *patch.FrequencyPenalty > 2 {
			return ModelConfig{}, common.NewValidationError("frequency_penalty", "frequency_penalty must be in [-2,2]")
		}
		cfg.FrequencyPenalty = *patch.FrequencyPenalty
	}
	if patch.PresencePenalty != nil {
		if *patch.PresencePenalty < -2 || *patch.PresencePenalty > 2 {
			return ModelConfig{}, common.NewValidationError("presence_penalty", "presence_penalty must be in [-2,2]")
		}
		cfg.PresencePenalty = *patch.PresencePenalty
	}
	if patch.SystemPrompt != nil {
		cfg.SystemPrompt = *patch.SystemPrompt
	}

	if err := s.repo.UpdateSessionConfig(ctx, sessionID, cfg); err != nil {
		return ModelConfig{}, err
	}
	return cfg, nil
}

func (s *Service) ResetConfig(ctx context.Context, userID uint64, sessionID string) (ModelConfig, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return ModelConfig{}, err
	}
	cfg := DefaultConfig()
	if err := s.repo.UpdateSessionConfig(ctx, sessionID, cfg); err != nil {
		return ModelConfig{}, err
	}
	return cfg, nil
}

// ApplyPrompt replaces the session's system prompt with a template's content.
func (s *Service) ApplyPrompt(ctx context.Context, userID uint64, sessionID, prompt string) (ModelConfig, error) {
	return s.UpdateConfig(ctx, userID, sessionID, ConfigPatch{SystemPrompt: &prompt})
}

func (s *Service) ValidateSessionOwner(ctx context.Context, userID uint64, sessionID string) error {
	_, err := s.ownedSession(ctx, userID, sessionID)
	return err
}

func (s *Service) InsertUserMessage(ctx context.Context, userID uint64, sessionID string, content string) error {
	if err := s.ValidateSessionOwner(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.repo.InsertMessage(ctx, &Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleUser,
		Content:   content,
	})
}

func (s *Service) CreateJob(ctx context.Context, job *Job) error {
	return s.repo.CreateJob(ctx, job)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

func (s *Service) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	return s.repo.CreateJobOrGetExisting(ctx, job)
}

// GenerateAssistantReplyAndInsert runs one job's completion. The worker owns
// the user-message insertion order, so only the assistant side happens here.
func (s *Service) GenerateAssistantReplyAndInsert(ctx context.Context, userID uint64, sessionID, prompt string) (string, uint64, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return "", 0, err
	}

	res, err := s.dispatcher.Chat(ctx, s.chatRequest(sess, prompt))
	if err != nil {
		return "", 0, err
	}

	msg, err := s.insertAssistant(ctx, sess, res)
	if err != nil {
		return "", 0, err
	}
	return msg.Content, msg.ID, nil
}
