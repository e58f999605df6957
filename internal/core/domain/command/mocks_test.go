package command

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/service"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockInteractor struct {
	mock.Mock
}

func (m *MockInteractor) Defer(ctx context.Context, invocation *domain.Invocation, ephemeral bool) error {
	args := m.Called(ctx, invocation, ephemeral)
	return args.Error(0)
}

func (m *MockInteractor) Followup(ctx context.Context, invocation *domain.Invocation, text string) error {
	args := m.Called(ctx, invocation, text)
	return args.Error(0)
}

func (m *MockInteractor) Ephemeral(ctx context.Context, invocation *domain.Invocation, text string) error {
	args := m.Called(ctx, invocation, text)
	return args.Error(0)
}

type stubAuthorizer bool

func (s stubAuthorizer) IsAuthorized(_ context.Context, _ string) bool {
	return bool(s)
}

type mockChecker struct {
	verdict domain.ModerationVerdict
	err     error
}

func (m *mockChecker) Check(_ context.Context, _ string, _ string) (domain.ModerationVerdict, error) {
	return m.verdict, m.err
}

type mockAuditLog struct {
	events []domain.AuditEvent
}

func (m *mockAuditLog) Record(_ context.Context, event domain.AuditEvent) error {
	m.events = append(m.events, event)
	return nil
}

type recordingGenerator struct {
	inputs []service.CompletionInput
}

func (r *recordingGenerator) Generate(_ context.Context, in service.CompletionInput) domain.CompletionData {
	r.inputs = append(r.inputs, in)
	return domain.CompletionData{Status: domain.CompletionOK, ReplyText: "hello"}
}

type recordingDispatcher struct {
	targets []service.Target
}

func (r *recordingDispatcher) Dispatch(_ context.Context, target service.Target, _ domain.CompletionData) error {
	r.targets = append(r.targets, target)
	return nil
}

type MockImageGenerator struct {
	response    []byte
	err         error
	description string
	style       string
}

func (m *MockImageGenerator) GenerateImage(_ context.Context, description string, style string) ([]byte, error) {
	m.description = description
	m.style = style
	return m.response, m.err
}

// fakeMessenger covers the calls commands make. Typing may run concurrently with the rest.
type fakeMessenger struct {
	mu sync.Mutex

	anchors    []domain.AnchorPost
	anchorErr  error
	threadName string
	threadErr  error
	files      map[string][]byte
	captions   []string
	fileErr    error
}

func (f *fakeMessenger) SendText(_ context.Context, _ string, _ string) (string, error) {
	return "", nil
}

func (f *fakeMessenger) SendNotice(_ context.Context, _ string, _ domain.Notice) error {
	return nil
}

func (f *fakeMessenger) SendFile(_ context.Context, _ string, name string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fileErr != nil {
		return f.fileErr
	}

	if f.files == nil {
		f.files = map[string][]byte{}
	}

	f.files[name] = data
	f.captions = append(f.captions, caption)
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ string, _ string) error {
	return nil
}

func (f *fakeMessenger) Typing(_ context.Context, _ string) {}

func (f *fakeMessenger) SendAnchor(_ context.Context, _ string, post domain.AnchorPost) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.anchorErr != nil {
		return "", f.anchorErr
	}

	f.anchors = append(f.anchors, post)
	return "anchor-id", nil
}

func (f *fakeMessenger) StartThread(_ context.Context, _ string, _ string, name string) (domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.threadName = name
	return domain.Thread{ID: "thread-id", Name: name}, f.threadErr
}

func (f *fakeMessenger) FetchThread(_ context.Context, _ string) (domain.Thread, error) {
	return domain.Thread{}, nil
}

func (f *fakeMessenger) FetchAnchor(_ context.Context, _ domain.Thread) (domain.AnchorRecord, error) {
	return domain.AnchorRecord{}, nil
}

func (f *fakeMessenger) FetchHistory(_ context.Context, _ string, _ int) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessenger) LastMessage(_ context.Context, _ string) (domain.ChatMessage, error) {
	return domain.ChatMessage{}, nil
}

func (f *fakeMessenger) CloseThread(_ context.Context, _ string) error {
	return nil
}

type mockAuditReader struct {
	events  []domain.AuditEvent
	err     error
	guildID string
	limit   int
}

func (m *mockAuditReader) Recent(_ context.Context, guildID string, limit int) ([]domain.AuditEvent, error) {
	m.guildID = guildID
	m.limit = limit
	return m.events, m.err
}
