package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"multichat/internal/llm"
	"multichat/internal/lock"
	"multichat/internal/service"
	"multichat/internal/service/mocks"
	"multichat/internal/storage"
	storage_mocks "multichat/internal/storage/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	// Set default logger to discard output for cleaner test output
	// This suppresses logs from slog.Default() used in the service layer
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testContext returns a context for testing.
// The default logger is already set to discard in init().
func testContext() context.Context {
	return context.Background()
}

var (
	openAISpec = llm.ProviderSpec{ID: "openai", Name: "OpenAI", Dialect: llm.DialectOpenAI, Models: []string{"gpt-4o-mini", "gpt-4o"}}
	googleSpec = llm.ProviderSpec{ID: "google", Name: "Google", Dialect: llm.DialectGoogle, Models: []string{"gemini-2.0-flash"}}
)

type chatMocks struct {
	llm           *mocks.MockLLMClient
	credentials   *storage_mocks.MockCredentialStore
	conversations *storage_mocks.MockConversationStore
	messages      *storage_mocks.MockMessageStore
	settings      *storage_mocks.MockSettingsStore
}

// expectOwned makes conv-1 resolve as a conversation of user-1.
func expectOwned(m chatMocks) {
	m.conversations.EXPECT().Get(gomock.Any(), "user-1", "conv-1").
		Return(&storage.ConversationRecord{ID: "conv-1", UserID: "user-1"}, nil)
}

func newChatService(t *testing.T) (service.ChatService, chatMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := chatMocks{
		llm:           mocks.NewMockLLMClient(ctrl),
		credentials:   storage_mocks.NewMockCredentialStore(ctrl),
		conversations: storage_mocks.NewMockConversationStore(ctrl),
		messages:      storage_mocks.NewMockMessageStore(ctrl),
		settings:      storage_mocks.NewMockSettingsStore(ctrl),
	}
	svc := service.NewChatService(service.ChatServiceConfig{
		LLM:           m.llm,
		Credentials:   m.credentials,
		Conversations: m.conversations,
		Messages:      m.messages,
		Settings:      m.settings,
		Timeout:       time.Second,
	})
	return svc, m
}

// appendEcho makes Append return the record with the given index.
func appendEcho(index int) func(context.Context, string, *storage.MessageRecord) (*storage.MessageRecord, error) {
	return func(_ context.Context, _ string, msg *storage.MessageRecord) (*storage.MessageRecord, error) {
		out := *msg
		out.ID = fmt.Sprintf("msg-%d", index)
		out.MessageIndex = index
		return &out, nil
	}
}

func TestNewChatService(t *testing.T) {
	svc, _ := newChatService(t)
	if svc == nil {
		t.Fatal("NewChatService() returned nil")
	}
}

func TestChatService_SendMessage(t *testing.T) {
	activeKey := &storage.CredentialRecord{ID: "cred-1", UserID: "user-1", Provider: "openai", Secret: "sk-test", IsActive: true}
	userRec := storage.MessageRecord{ID: "msg-0", ConversationID: "conv-1", Content: "Hello", Role: storage.RoleUser}

	tests := []struct {
		name      string
		userID    string
		req       service.SendMessageRequest
		mockSetup func(m chatMocks)
		wantErr   error
		wantReply string
		wantModel string
	}{
		{
			name:   "successful exchange",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "openai").Return(activeKey, nil)
				gomock.InOrder(
					m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(0)),
					m.messages.EXPECT().ListByConversation(gomock.Any(), "user-1", "conv-1").Return([]storage.MessageRecord{userRec}, nil),
					m.llm.EXPECT().
						Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", []llm.Message{{Role: llm.RoleUser, Content: "Hello"}}).
						Return("Hi there!", nil),
					m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(1)),
				)
			},
			wantReply: "Hi there!",
			wantModel: "gpt-4o",
		},
		{
			name:   "falls back to settings",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello"},
			mockSetup: func(m chatMocks) {
				settings := storage.DefaultSettings("user-1")
				m.settings.EXPECT().Get(gomock.Any(), "user-1").Return(&settings, nil)
				m.llm.EXPECT().Provider("google").Return(googleSpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "google").
					Return(&storage.CredentialRecord{ID: "cred-2", Provider: "google", Secret: "g-key", IsActive: true}, nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(0))
				m.messages.EXPECT().ListByConversation(gomock.Any(), "user-1", "conv-1").Return([]storage.MessageRecord{userRec}, nil)
				m.llm.EXPECT().Complete(gomock.Any(), "google", "g-key", "gemini-2.0-flash", gomock.Any()).Return("Hello from Gemini", nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(1))
			},
			wantReply: "Hello from Gemini",
			wantModel: "gemini-2.0-flash",
		},
		{
			name:   "provider without model uses first registry model",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "openai"},
			mockSetup: func(m chatMocks) {
				settings := storage.DefaultSettings("user-1")
				m.settings.EXPECT().Get(gomock.Any(), "user-1").Return(&settings, nil)
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "openai").Return(activeKey, nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(0))
				m.messages.EXPECT().ListByConversation(gomock.Any(), "user-1", "conv-1").Return([]storage.MessageRecord{userRec}, nil)
				m.llm.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o-mini", gomock.Any()).Return("ok", nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(1))
			},
			wantReply: "ok",
			wantModel: "gpt-4o-mini",
		},
		{
			name:    "unauthenticated",
			userID:  "",
			req:     service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello"},
			wantErr: service.ErrUnauthenticated,
		},
		{
			name:    "empty message",
			userID:  "user-1",
			req:     service.SendMessageRequest{ConversationID: "conv-1", Message: ""},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "whitespace message",
			userID:  "user-1",
			req:     service.SendMessageRequest{ConversationID: "conv-1", Message: "   \n\t"},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "missing conversation id",
			userID:  "user-1",
			req:     service.SendMessageRequest{Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:   "unsupported provider",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "acme", Model: "x"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("acme").Return(llm.ProviderSpec{}, false)
			},
			wantErr: service.ErrUnsupportedProvider,
		},
		{
			name:   "no active credential appends nothing",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "openai").Return(nil, storage.ErrNotFound)
			},
			wantErr: service.ErrNoCredential,
		},
		{
			name:   "conversation not found",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "missing", Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				m.conversations.EXPECT().Get(gomock.Any(), "user-1", "missing").Return(nil, storage.ErrNotFound)
			},
			wantErr: service.ErrNotFound,
		},
		{
			name:   "upstream failure keeps the user message",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "openai").Return(activeKey, nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(0)).Times(1)
				m.messages.EXPECT().ListByConversation(gomock.Any(), "user-1", "conv-1").Return([]storage.MessageRecord{userRec}, nil)
				m.llm.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", gomock.Any()).
					Return("", &llm.UpstreamError{Provider: "openai", StatusCode: 401, Body: "invalid api key"})
			},
			wantErr: service.ErrUpstream,
		},
		{
			name:   "transport failure is reported as upstream",
			userID: "user-1",
			req:    service.SendMessageRequest{ConversationID: "conv-1", Message: "Hello", Provider: "openai", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				expectOwned(m)
				m.credentials.EXPECT().GetActive(gomock.Any(), "user-1", "openai").Return(activeKey, nil)
				m.messages.EXPECT().Append(gomock.Any(), "user-1", gomock.Any()).DoAndReturn(appendEcho(0)).Times(1)
				m.messages.EXPECT().ListByConversation(gomock.Any(), "user-1", "conv-1").Return([]storage.MessageRecord{userRec}, nil)
				m.llm.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", gomock.Any()).
					Return("", errors.New("connection refused"))
			},
			wantErr: service.ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newChatService(t)
			if tt.mockSetup != nil {
				tt.mockSetup(m)
			}

			resp, err := svc.SendMessage(testContext(), tt.userID, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SendMessage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SendMessage() unexpected error = %v", err)
			}
			if resp.Reply != tt.wantReply {
				t.Errorf("SendMessage() reply = %q, want %q", resp.Reply, tt.wantReply)
			}
			if resp.Model != tt.wantModel {
				t.Errorf("SendMessage() model = %q, want %q", resp.Model, tt.wantModel)
			}
			if resp.UserMessage.Role != storage.RoleUser || resp.AssistantMessage.Role != storage.RoleAssistant {
				t.Errorf("SendMessage() roles = %q/%q", resp.UserMessage.Role, resp.AssistantMessage.Role)
			}
			if resp.AssistantMessage.Provider != resp.Provider || resp.AssistantMessage.Model != resp.Model {
				t.Errorf("assistant message not attributed: %+v", resp.AssistantMessage)
			}
		})
	}
}

// recordingLocker records every key it is asked to lock.
type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return func() {}, nil
}

func TestChatService_SendMessage_ForeignConversationSkipsLock(t *testing.T) {
	ctx := testContext()
	stores := newSQLiteStores(t)
	ctrl := gomock.NewController(t)
	llmClient := mocks.NewMockLLMClient(ctrl)
	llmClient.EXPECT().Provider("openai").Return(openAISpec, true).AnyTimes()
	locker := &recordingLocker{}

	svc := service.NewChatService(service.ChatServiceConfig{
		LLM:           llmClient,
		Credentials:   stores.credentials,
		Conversations: stores.conversations,
		Messages:      stores.messages,
		Settings:      stores.settings,
		Locker:        locker,
	})

	conv, err := stores.conversations.Create(ctx, "owner", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := stores.credentials.Save(ctx, "intruder", "openai", "sk-test"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	for _, id := range []string{conv.ID, "no-such-conversation"} {
		_, err := svc.SendMessage(ctx, "intruder", service.SendMessageRequest{
			ConversationID: id, Message: "Hello", Provider: "openai", Model: "gpt-4o",
		})
		if !errors.Is(err, service.ErrNotFound) {
			t.Errorf("SendMessage(%s) error = %v, want ErrNotFound", id, err)
		}
	}
	if len(locker.keys) != 0 {
		t.Errorf("locked keys = %v, want none", locker.keys)
	}

	msgs, err := stores.messages.ListByConversation(ctx, "owner", conv.ID)
	if err != nil {
		t.Fatalf("ListByConversation() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages = %d, want 0", len(msgs))
	}
}

func TestChatService_SendMessage_ValidationField(t *testing.T) {
	svc, _ := newChatService(t)

	_, err := svc.SendMessage(testContext(), "user-1", service.SendMessageRequest{ConversationID: "conv-1"})
	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("SendMessage() error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "message" {
		t.Errorf("ValidationError.Field = %q, want message", validationErr.Field)
	}
}

func TestChatService_TestCredential(t *testing.T) {
	tests := []struct {
		name        string
		req         service.TestCredentialRequest
		mockSetup   func(m chatMocks)
		wantSuccess bool
		wantMessage string
	}{
		{
			name: "success with explicit model",
			req:  service.TestCredentialRequest{Provider: "openai", Secret: "sk-test", Model: "gpt-4o"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				m.llm.EXPECT().
					Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", []llm.Message{{Role: llm.RoleUser, Content: "Hello, this is a test message."}}).
					Return("Hello!", nil)
			},
			wantSuccess: true,
			wantMessage: "Connection to OpenAI successful using gpt-4o",
		},
		{
			name: "empty model uses first registry model",
			req:  service.TestCredentialRequest{Provider: "google", Secret: "g-key"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("google").Return(googleSpec, true)
				m.llm.EXPECT().Complete(gomock.Any(), "google", "g-key", "gemini-2.0-flash", gomock.Any()).Return("hi", nil)
			},
			wantSuccess: true,
			wantMessage: "Connection to Google successful using gemini-2.0-flash",
		},
		{
			name: "upstream rejects key",
			req:  service.TestCredentialRequest{Provider: "openai", Secret: "bad"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("openai").Return(openAISpec, true)
				m.llm.EXPECT().Complete(gomock.Any(), "openai", "bad", "gpt-4o-mini", gomock.Any()).
					Return("", &llm.UpstreamError{Provider: "openai", StatusCode: 401, Body: "invalid api key"})
			},
			wantSuccess: false,
			wantMessage: "Test failed: ",
		},
		{
			name: "unsupported provider",
			req:  service.TestCredentialRequest{Provider: "acme", Secret: "k"},
			mockSetup: func(m chatMocks) {
				m.llm.EXPECT().Provider("acme").Return(llm.ProviderSpec{}, false)
			},
			wantSuccess: false,
			wantMessage: "Test failed: ",
		},
		{
			name:        "missing secret",
			req:         service.TestCredentialRequest{Provider: "openai"},
			wantSuccess: false,
			wantMessage: "Test failed: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newChatService(t)
			if tt.mockSetup != nil {
				tt.mockSetup(m)
			}

			got := svc.TestCredential(testContext(), tt.req)
			if got.Success != tt.wantSuccess {
				t.Errorf("TestCredential() success = %v, want %v (%s)", got.Success, tt.wantSuccess, got.Message)
			}
			if !strings.HasPrefix(got.Message, tt.wantMessage) {
				t.Errorf("TestCredential() message = %q, want prefix %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestChatService_Providers(t *testing.T) {
	svc, m := newChatService(t)
	m.llm.EXPECT().Providers().Return([]llm.ProviderSpec{openAISpec, googleSpec})

	got := svc.Providers()
	if len(got) != 2 || got[0].ID != "openai" || got[1].ID != "google" {
		t.Errorf("Providers() = %+v", got)
	}
}

// sqliteStores wires the real repositories against a temporary database.
type sqliteStores struct {
	credentials   *storage.CredentialRepo
	conversations *storage.ConversationRepo
	messages      *storage.MessageRepo
	branches      *storage.BranchRepo
	settings      *storage.SettingsRepo
}

func newSQLiteStores(t *testing.T) sqliteStores {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}

	return sqliteStores{
		credentials:   storage.NewCredentialRepo(db),
		conversations: storage.NewConversationRepo(db),
		messages:      storage.NewMessageRepo(db),
		branches:      storage.NewBranchRepo(db),
		settings:      storage.NewSettingsRepo(db),
	}
}

func TestChatService_SendMessage_SQLite(t *testing.T) {
	ctx := testContext()
	stores := newSQLiteStores(t)
	ctrl := gomock.NewController(t)
	llmClient := mocks.NewMockLLMClient(ctrl)

	svc := service.NewChatService(service.ChatServiceConfig{
		LLM:           llmClient,
		Credentials:   stores.credentials,
		Conversations: stores.conversations,
		Messages:      stores.messages,
		Settings:      stores.settings,
	})

	conv, err := stores.conversations.Create(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	llmClient.EXPECT().Provider("openai").Return(openAISpec, true).AnyTimes()

	// Without a credential nothing is written.
	_, err = svc.SendMessage(ctx, "user-1", service.SendMessageRequest{ConversationID: conv.ID, Message: "first", Provider: "openai", Model: "gpt-4o"})
	if !errors.Is(err, service.ErrNoCredential) {
		t.Fatalf("SendMessage() error = %v, want ErrNoCredential", err)
	}
	msgs, _ := stores.messages.ListByConversation(ctx, "user-1", conv.ID)
	if len(msgs) != 0 {
		t.Fatalf("messages after missing credential = %d, want 0", len(msgs))
	}

	if _, err := stores.credentials.Save(ctx, "user-1", "openai", "sk-test"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var histories [][]llm.Message
	llmClient.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, history []llm.Message) (string, error) {
			histories = append(histories, history)
			return "reply " + history[len(history)-1].Content, nil
		}).Times(2)

	for _, text := range []string{"What is Go?", "And channels?"} {
		if _, err := svc.SendMessage(ctx, "user-1", service.SendMessageRequest{ConversationID: conv.ID, Message: text, Provider: "openai", Model: "gpt-4o"}); err != nil {
			t.Fatalf("SendMessage(%q) error = %v", text, err)
		}
	}

	if len(histories[1]) != 3 {
		t.Fatalf("second history length = %d, want 3", len(histories[1]))
	}
	count := 0
	for _, m := range histories[1] {
		if m.Content == "And channels?" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("new user message appears %d times in history, want 1", count)
	}

	msgs, err = stores.messages.ListByConversation(ctx, "user-1", conv.ID)
	if err != nil {
		t.Fatalf("ListByConversation() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	for i, m := range msgs {
		if m.MessageIndex != i {
			t.Errorf("message %d has index %d", i, m.MessageIndex)
		}
	}

	got, err := stores.conversations.Get(ctx, "user-1", conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "What is Go?" {
		t.Errorf("title = %q, want derived from first message", got.Title)
	}

	// An upstream failure leaves the user message without a reply.
	llmClient.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", gomock.Any()).
		Return("", &llm.UpstreamError{Provider: "openai", StatusCode: 500, Body: "boom"})
	_, err = svc.SendMessage(ctx, "user-1", service.SendMessageRequest{ConversationID: conv.ID, Message: "third", Provider: "openai", Model: "gpt-4o"})
	if !errors.Is(err, service.ErrUpstream) {
		t.Fatalf("SendMessage() error = %v, want ErrUpstream", err)
	}
	msgs, _ = stores.messages.ListByConversation(ctx, "user-1", conv.ID)
	if len(msgs) != 5 || msgs[4].Role != storage.RoleUser || msgs[4].Content != "third" {
		t.Errorf("after upstream failure messages = %d, last = %+v", len(msgs), msgs[len(msgs)-1])
	}
}

func TestChatService_SendMessage_ConcurrentSendsAreSerialized(t *testing.T) {
	ctx := testContext()
	stores := newSQLiteStores(t)
	ctrl := gomock.NewController(t)
	llmClient := mocks.NewMockLLMClient(ctrl)

	svc := service.NewChatService(service.ChatServiceConfig{
		LLM:           llmClient,
		Credentials:   stores.credentials,
		Conversations: stores.conversations,
		Messages:      stores.messages,
		Settings:      stores.settings,
		Locker:        lock.NewLocal(),
	})

	conv, err := stores.conversations.Create(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := stores.credentials.Save(ctx, "user-1", "openai", "sk-test"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	const senders = 5
	llmClient.EXPECT().Provider("openai").Return(openAISpec, true).Times(senders)
	llmClient.EXPECT().Complete(gomock.Any(), "openai", "sk-test", "gpt-4o", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, history []llm.Message) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "re: " + history[len(history)-1].Content, nil
		}).Times(senders)

	var wg sync.WaitGroup
	errs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, "user-1", service.SendMessageRequest{
				ConversationID: conv.ID,
				Message:        fmt.Sprintf("question %d", i),
				Provider:       "openai",
				Model:          "gpt-4o",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
	}

	msgs, err := stores.messages.ListByConversation(ctx, "user-1", conv.ID)
	if err != nil {
		t.Fatalf("ListByConversation() error = %v", err)
	}
	if len(msgs) != 2*senders {
		t.Fatalf("messages = %d, want %d", len(msgs), 2*senders)
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Role != storage.RoleUser || msgs[i+1].Role != storage.RoleAssistant {
			t.Fatalf("messages %d,%d roles = %s,%s", i, i+1, msgs[i].Role, msgs[i+1].Role)
		}
		if msgs[i+1].Content != "re: "+msgs[i].Content {
			t.Errorf("reply at %d = %q does not answer %q", i+1, msgs[i+1].Content, msgs[i].Content)
		}
	}
}
