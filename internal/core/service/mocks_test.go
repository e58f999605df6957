package service

import (
	"actorbot/internal/core/domain"
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, request domain.CompletionRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

type MockModerator struct {
	mock.Mock
}

func (m *MockModerator) Moderate(ctx context.Context, text string, user string) (domain.ModerationScores, error) {
	args := m.Called(ctx, text, user)
	scores, _ := args.Get(0).(domain.ModerationScores)
	return scores, args.Error(1)
}

type mockChecker struct {
	verdict domain.ModerationVerdict
	err     error
	texts   []string
}

func (m *mockChecker) Check(_ context.Context, text string, _ string) (domain.ModerationVerdict, error) {
	m.texts = append(m.texts, text)
	return m.verdict, m.err
}

type mockAuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (m *mockAuditLog) Record(_ context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return m.err
}

// fakeMessenger records every call. Calls are serialized since Typing runs on its own goroutine.
type fakeMessenger struct {
	mu sync.Mutex

	calls   []string
	texts   []string
	notices []domain.Notice
	deleted []string
	closed  []string

	thread    domain.Thread
	threadErr error
	anchor    domain.AnchorRecord
	anchorErr error
	history   []domain.ChatMessage
	last      []domain.ChatMessage
	lastIdx   int

	sendTextErr error
	sendNotErr  error
	deleteErr   error
	closeErr    error
	nextID      int
}

func (f *fakeMessenger) call(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeMessenger) SendText(_ context.Context, _ string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("SendText")
	if f.sendTextErr != nil {
		return "", f.sendTextErr
	}

	f.texts = append(f.texts, text)
	f.nextID++
	return fmt.Sprintf("m%d", f.nextID), nil
}

func (f *fakeMessenger) SendNotice(_ context.Context, _ string, notice domain.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("SendNotice")
	f.notices = append(f.notices, notice)
	return f.sendNotErr
}

func (f *fakeMessenger) SendFile(_ context.Context, _ string, _ string, _ []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("SendFile")
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("DeleteMessage")
	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) Typing(_ context.Context, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
}

func (f *fakeMessenger) SendAnchor(_ context.Context, _ string, _ domain.AnchorPost) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("SendAnchor")
	return "anchor", nil
}

func (f *fakeMessenger) StartThread(_ context.Context, _ string, _ string, name string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("StartThread")
	return domain.Thread{ID: "thread", Name: name}, nil
}

func (f *fakeMessenger) FetchThread(_ context.Context, _ string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("FetchThread")
	return f.thread, f.threadErr
}

func (f *fakeMessenger) FetchAnchor(_ context.Context, _ domain.Thread) (domain.AnchorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("FetchAnchor")
	return f.anchor, f.anchorErr
}

func (f *fakeMessenger) FetchHistory(_ context.Context, _ string, _ int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("FetchHistory")
	return f.history, nil
}

// LastMessage returns the configured messages in order, repeating the final one.
func (f *fakeMessenger) LastMessage(_ context.Context, _ string) (domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("LastMessage")
	if len(f.last) == 0 {
		return domain.ChatMessage{}, nil
	}

	m := f.last[min(f.lastIdx, len(f.last)-1)]
	f.lastIdx++
	return m, nil
}

func (f *fakeMessenger) CloseThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.call("CloseThread")
	if f.closeErr != nil {
		return f.closeErr
	}

	f.closed = append(f.closed, threadID)
	return nil
}
