package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a second pooled connection would see a different :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Session{}, &Message{}, &Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func fastDispatcher() *dispatch.Dispatcher {
	return dispatch.New(dispatch.Options{
		ChatLatencyMin: time.Millisecond,
		ChatLatencyMax: 2 * time.Millisecond,
		FixedLatency:   time.Millisecond,
	})
}

func newTestService(t *testing.T, d *dispatch.Dispatcher) (*Service, *Session) {
	t.Helper()
	svc := NewService(NewRepo(openTestDB(t)), d)
	sess, err := svc.CreateSession(context.Background(), 1, "gpt-4")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return svc, sess
}

func logMessages(t *testing.T, svc *Service, sess *Session) []Message {
	t.Helper()
	msgs, err := svc.repo.ListAllMessagesAsc(context.Background(), sess.UserID, sess.SessionID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	return msgs
}

func TestSendWritesUserThenAssistant(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	reply, err := svc.Send(context.Background(), 1, sess.SessionID, "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Role != RoleAssistant {
		t.Fatalf("unexpected reply role %q", reply.Role)
	}
	if !strings.Contains(reply.Content, "GPT-4") {
		t.Fatalf("reply should name the model, got %q", reply.Content)
	}
	if !strings.Contains(reply.Content, `"Hello"`) {
		t.Fatalf("reply should echo the prompt, got %q", reply.Content)
	}
	if reply.Tokens == nil || *reply.Tokens < 100 || *reply.Tokens >= 600 {
		t.Fatalf("tokens out of range: %v", reply.Tokens)
	}

	msgs := logMessages(t, svc, sess)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant {
		t.Fatalf("unexpected second msg role %q", msgs[1].Role)
	}
}

func TestSendRoundTripsAlternate(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Send(context.Background(), 1, sess.SessionID, text); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}

		msgs := logMessages(t, svc, sess)
		if len(msgs)%2 != 0 {
			t.Fatalf("log length %d not even after a completed round trip", len(msgs))
		}
		for i, m := range msgs {
			want := RoleUser
			if i%2 == 1 {
				want = RoleAssistant
			}
			if m.Role != want {
				t.Fatalf("msg %d: got role %q, want %q", i, m.Role, want)
			}
		}
	}
}

func TestSendBlankInputIsNoOp(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	for _, text := range []string{"", "   "} {
		_, err := svc.Send(context.Background(), 1, sess.SessionID, text)
		if !common.IsValidationError(err) {
			t.Fatalf("send %q: expected validation error, got %v", text, err)
		}
	}
	if msgs := logMessages(t, svc, sess); len(msgs) != 0 {
		t.Fatalf("blank sends mutated the log: %d messages", len(msgs))
	}
}

func TestSendUnownedSession(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	_, err := svc.Send(context.Background(), 99, sess.SessionID, "hi")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for foreign session, got %v", err)
	}
}

func TestClearEmptiesLogWhilePending(t *testing.T) {
	d := dispatch.New(dispatch.Options{
		ChatLatencyMin: 200 * time.Millisecond,
		ChatLatencyMax: 200 * time.Millisecond,
	})
	svc, sess := newTestService(t, d)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Send(context.Background(), 1, sess.SessionID, "slow one")
	}()

	// wait for the user message to land, then clear mid-flight
	deadline := time.Now().Add(time.Second)
	for len(logMessages(t, svc, sess)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("user message never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !svc.Pending(sess.SessionID) {
		t.Fatal("expected a pending completion")
	}
	if err := svc.Clear(context.Background(), 1, sess.SessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if msgs := logMessages(t, svc, sess); len(msgs) != 0 {
		t.Fatalf("log not empty right after clear: %d messages", len(msgs))
	}

	wg.Wait()
	if svc.Pending(sess.SessionID) {
		t.Fatal("pending flag stuck after resolution")
	}
}

func TestStaleSendIsDiscarded(t *testing.T) {
	d := dispatch.New(dispatch.Options{
		ChatLatencyMin: 150 * time.Millisecond,
		ChatLatencyMax: 150 * time.Millisecond,
	})
	svc, sess := newTestService(t, d)

	errs := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), 1, sess.SessionID, "first")
		errs <- err
	}()

	// second send supersedes the first while it is still in flight
	time.Sleep(50 * time.Millisecond)
	if _, err := svc.Send(context.Background(), 1, sess.SessionID, "second"); err != nil {
		t.Fatalf("second send: %v", err)
	}

	if err := <-errs; !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("first send: expected ErrStaleRequest, got %v", err)
	}

	var assistants int
	for _, m := range logMessages(t, svc, sess) {
		if m.Role == RoleAssistant {
			assistants++
		}
	}
	if assistants != 1 {
		t.Fatalf("expected exactly one assistant reply, got %d", assistants)
	}
}

func TestSendDispatchFailureKeepsUserMessage(t *testing.T) {
	d := dispatch.New(dispatch.Options{
		ChatLatencyMin: time.Millisecond,
		ChatLatencyMax: 2 * time.Millisecond,
		FailureRate:    1,
	})
	svc, sess := newTestService(t, d)

	_, err := svc.Send(context.Background(), 1, sess.SessionID, "doomed")
	var f *dispatch.Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}

	msgs := logMessages(t, svc, sess)
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("expected only the user message after failure, got %d messages", len(msgs))
	}
	if svc.Pending(sess.SessionID) {
		t.Fatal("pending flag stuck after failure")
	}
}

func TestExportSnapshot(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	if _, err := svc.Send(context.Background(), 1, sess.SessionID, "export me"); err != nil {
		t.Fatalf("send: %v", err)
	}

	snap, err := svc.ExportSession(context.Background(), 1, sess.SessionID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if snap.Model != "gpt-4" {
		t.Fatalf("unexpected model %q", snap.Model)
	}
	if snap.Config != DefaultConfig() {
		t.Fatalf("unexpected config %+v", snap.Config)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("expected 2 messages in export, got %d", len(snap.Messages))
	}

	// export is pure: the log is untouched
	if got := len(logMessages(t, svc, sess)); got != 2 {
		t.Fatalf("export mutated the log: %d messages", got)
	}

	name := ExportFilename(time.UnixMilli(1700000000000))
	if name != "chat-export-1700000000000.json" {
		t.Fatalf("unexpected filename %q", name)
	}
}

func TestUpdateConfigMergeAndRanges(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	temp := 1.5
	cfg, err := svc.UpdateConfig(context.Background(), 1, sess.SessionID, ConfigPatch{Temperature: &temp})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if cfg.Temperature != 1.5 {
		t.Fatalf("temperature not merged: %v", cfg.Temperature)
	}
	if cfg.MaxTokens != 2048 || cfg.SystemPrompt != DefaultConfig().SystemPrompt {
		t.Fatalf("unrelated fields changed: %+v", cfg)
	}

	bad := 3.0
	if _, err := svc.UpdateConfig(context.Background(), 1, sess.SessionID, ConfigPatch{Temperature: &bad}); !common.IsValidationError(err) {
		t.Fatalf("expected range validation error, got %v", err)
	}

	tokens := 5000
	if _, err := svc.UpdateConfig(context.Background(), 1, sess.SessionID, ConfigPatch{MaxTokens: &tokens}); !common.IsValidationError(err) {
		t.Fatalf("expected max_tokens validation error, got %v", err)
	}

	reset, err := svc.ResetConfig(context.Background(), 1, sess.SessionID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != DefaultConfig() {
		t.Fatalf("reset did not restore defaults: %+v", reset)
	}
}

func TestApplyPromptSetsSystemPrompt(t *testing.T) {
	svc, sess := newTestService(t, fastDispatcher())

	cfg, err := svc.ApplyPrompt(context.Background(), 1, sess.SessionID, "You are a code reviewer.")
	if err != nil {
		t.Fatalf("apply prompt: %v", err)
	}
	if cfg.SystemPrompt != "You are a code reviewer." {
		t.Fatalf("system prompt not applied: %q", cfg.SystemPrompt)
	}
}

func TestCreateSessionUnknownModel(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)), fastDispatcher())

	if _, err := svc.CreateSession(context.Background(), 1, "gpt-99"); !common.IsValidationError(err) {
		t.Fatalf("expected validation error for unknown model, got %v", err)
	}
}
