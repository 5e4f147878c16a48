// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/overlay"
	"github.com/jeranaias/alfred-tui/internal/storage"
	"github.com/jeranaias/alfred-tui/internal/stream"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeBackend struct {
	mu sync.Mutex

	chats     []model.Chat
	messages  map[model.ChatID][]model.Message
	nextChat  model.ChatID
	pref      model.Preference
	createErr error
	uploadErr error
	deleteErr error

	created  []string
	uploaded []string
	prefs    []model.Preference
	cleared  int
	lists    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: map[model.ChatID][]model.Message{}, nextChat: 42}
}

func (b *fakeBackend) ListChats(ctx context.Context, sessionID string) ([]model.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Chat(nil), b.chats...), nil
}

func (b *fakeBackend) CreateChat(ctx context.Context, sessionID, title string) (model.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, title)
	if b.createErr != nil {
		return model.Chat{}, b.createErr
	}
	chat := model.Chat{ID: b.nextChat, SessionID: sessionID, Title: title}
	b.nextChat++
	b.chats = append([]model.Chat{chat}, b.chats...)
	return chat, nil
}

func (b *fakeBackend) DeleteChat(ctx context.Context, id model.ChatID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteErr
}

func (b *fakeBackend) ListMessages(ctx context.Context, id model.ChatID) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	return append([]model.Message{}, b.messages[id]...), nil
}

func (b *fakeBackend) GetPreference(ctx context.Context, sessionID string) (model.Preference, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pref, nil
}

func (b *fakeBackend) SetPreference(ctx context.Context, pref model.Preference) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefs = append(b.prefs, pref)
	return nil
}

func (b *fakeBackend) UploadFile(ctx context.Context, sessionID, path string) (model.UploadResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploaded = append(b.uploaded, path)
	if b.uploadErr != nil {
		return model.UploadResult{}, b.uploadErr
	}
	return model.UploadResult{Filename: filepath.Base(path)}, nil
}

func (b *fakeBackend) ClearFiles(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared++
	return nil
}

func (b *fakeBackend) setMessages(id model.ChatID, msgs ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[id] = msgs
}

func (b *fakeBackend) snapshot(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// fakeStream is one Stream call, fed frame by frame by the test. It ignores
// context cancellation so late frames can be simulated.
type fakeStream struct {
	req  stream.Request
	ctx  context.Context
	feed chan stream.Frame
	ack  chan struct{}
	end  chan error
}

type fakeTransport struct {
	started chan *fakeStream
}

func (t *fakeTransport) Stream(ctx context.Context, req stream.Request, emit func(stream.Frame)) error {
	s := &fakeStream{
		req:  req,
		ctx:  ctx,
		feed: make(chan stream.Frame),
		ack:  make(chan struct{}),
		end:  make(chan error),
	}
	t.started <- s
	for {
		select {
		case f := <-s.feed:
			emit(f)
			s.ack <- struct{}{}
		case err := <-s.end:
			return err
		}
	}
}

type env struct {
	t       *testing.T
	q       *loop.Queue
	sched   *loop.ManualScheduler
	tr      *fakeTransport
	backend *fakeBackend
	mgr     *Manager
	updates int
}

func newEnv(t *testing.T, opts Options, cache Cache) *env {
	t.Helper()
	e := &env{
		t:       t,
		q:       loop.NewQueue(64),
		sched:   loop.NewManualScheduler(),
		tr:      &fakeTransport{started: make(chan *fakeStream, 8)},
		backend: newFakeBackend(),
	}
	if opts.SessionID == "" {
		opts.SessionID = "sess"
	}
	opts.OnUpdate = func() { e.updates++ }
	ctrl := stream.NewController(e.q, e.sched, e.tr, stream.Options{SessionID: opts.SessionID})
	e.mgr = NewManager(e.q, e.backend, cache, ctrl, opts)
	t.Cleanup(e.mgr.Close)
	return e
}

// until runs the loop until cond holds.
func (e *env) until(cond func() bool) {
	e.t.Helper()
	require.True(e.t, e.q.RunUntil(cond, 2*time.Second), "condition not reached")
}

func (e *env) stream() *fakeStream {
	e.t.Helper()
	var s *fakeStream
	e.until(func() bool {
		select {
		case s = <-e.tr.started:
			return true
		default:
			return false
		}
	})
	return s
}

// send feeds one frame and runs the closure it posts.
func (e *env) send(s *fakeStream, event, data string) {
	e.t.Helper()
	s.feed <- stream.Frame{Event: event, Data: []byte(data)}
	<-s.ack
	e.q.Drain()
}

func (e *env) finish(s *fakeStream, err error) {
	e.t.Helper()
	s.end <- err
	// handleEnd is posted after Stream returns.
	e.q.RunUntil(func() bool { return false }, 20*time.Millisecond)
}

func (e *env) submit(text string) {
	e.t.Helper()
	e.mgr.SetDraft(text)
	require.NoError(e.t, e.mgr.Send())
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

// =============================================================================
// SEND FLOW
// =============================================================================

func TestSend_CreatesChatAndStreamsReply(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true, Model: "llama3.2"}, nil)

	e.submit("Explain recursion")
	assert.True(t, e.mgr.Busy())

	s := e.stream()
	assert.Equal(t, model.ChatID(42), s.req.ChatID)
	assert.Equal(t, "Explain recursion", s.req.Prompt)
	assert.Equal(t, model.ChatID(42), e.mgr.CurrentChat())
	assert.Equal(t, "", e.mgr.Draft())
	e.backend.snapshot(func() {
		assert.Equal(t, []string{"Explain recursion"}, e.backend.created)
	})

	shown := e.mgr.Displayed()
	require.Len(t, shown, 2)
	assert.Equal(t, "user:Explain recursion", contents(shown)[0])
	assert.Equal(t, "assistant:", contents(shown)[1])

	e.send(s, "start", `{"chatId":42}`)
	e.send(s, "BOT_THINKING", `{}`)
	assert.Equal(t, overlay.Placeholder, e.mgr.Displayed()[1].Content)

	e.send(s, "BOT_Response", `{"content":"Hel"}`)
	e.send(s, "BOT_Response", `{"content":"lo"}`)
	e.send(s, "done", `{"content":"Hello"}`)

	e.sched.Tick()
	assert.Equal(t, "Hel", e.mgr.Displayed()[1].Content)
	e.sched.Tick()
	assert.Equal(t, "Hello", e.mgr.Displayed()[1].Content)
	assert.True(t, e.mgr.Busy())

	e.backend.setMessages(42,
		model.Message{ID: "42:1", Role: model.RoleUser, Content: "Explain recursion"},
		model.Message{ID: "42:2", Role: model.RoleAssistant, Content: "Hello"},
	)
	e.sched.Tick()
	assert.False(t, e.mgr.Busy())

	e.until(func() bool { return len(e.mgr.persisted) == 2 })
	shown = e.mgr.Displayed()
	assert.Equal(t, []string{"user:Explain recursion", "assistant:Hello"}, contents(shown))
	assert.Equal(t, "42:1", shown[0].ID)
	assert.Equal(t, "42:2", shown[1].ID)
	assert.Empty(t, e.mgr.Status())

	require.Eventually(t, func() bool {
		var ok bool
		e.backend.snapshot(func() {
			ok = len(e.backend.prefs) == 1 && e.backend.prefs[0].Provider == model.ProviderOllama
		})
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Explain recursion", e.mgr.CurrentTitle())
}

func TestSend_RefusesEmptyAndBusy(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)

	e.mgr.SetDraft("   ")
	assert.ErrorIs(t, e.mgr.Send(), ErrEmptyMessage)

	e.submit("first")
	e.mgr.SetDraft("second")
	assert.ErrorIs(t, e.mgr.Send(), ErrBusy)

	e.stream()
	e.mgr.SetDraft("third")
	assert.ErrorIs(t, e.mgr.Send(), ErrBusy)
}

func TestSend_CreateChatFailureAborts(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.backend.createErr = errors.New("backend down")

	e.submit("hello there")
	e.until(func() bool { return !e.mgr.Busy() })

	assert.Contains(t, e.mgr.Status(), "failed to create chat")
	assert.Empty(t, e.mgr.overlay)
	assert.Equal(t, model.NoChat, e.mgr.CurrentChat())
	assert.Equal(t, "hello there", e.mgr.Draft(), "draft is kept for a retry")
	assert.Len(t, e.tr.started, 0)
}

func TestSend_UploadsAttachmentsFirst(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	require.NoError(t, e.mgr.AddAttachment(path))
	assert.Error(t, e.mgr.AddAttachment(filepath.Join(t.TempDir(), "missing")))
	assert.Len(t, e.mgr.Attachments(), 1)

	e.submit("summarise")
	e.stream()

	e.backend.snapshot(func() { assert.Len(t, e.backend.uploaded, 1) })
	assert.Empty(t, e.mgr.Attachments())
	shown := e.mgr.Displayed()
	require.Len(t, shown, 2)
	assert.Equal(t, []string{"notes.txt"}, shown[0].AttachmentNames)
}

func TestSend_UploadFailureAborts(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.backend.uploadErr = errors.New("too large")
	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, e.mgr.AddAttachment(path))

	e.submit("read this")
	e.until(func() bool { return !e.mgr.Busy() })

	assert.Contains(t, e.mgr.Status(), "upload of big.pdf failed")
	assert.Empty(t, e.mgr.overlay)
	assert.Len(t, e.mgr.Attachments(), 1, "attachments stay queued")
	assert.Len(t, e.tr.started, 0)
}

func TestSend_WithoutCreateChatFirstReconcilesFromStart(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: false}, nil)

	e.submit("hi")
	s := e.stream()
	assert.Equal(t, model.NoChat, s.req.ChatID)
	assert.Equal(t, []string{"user:hi", "assistant:"}, contents(e.mgr.Displayed()))

	e.send(s, "start", `{"chatId":9}`)
	assert.Equal(t, model.ChatID(9), e.mgr.CurrentChat())
	assert.Len(t, e.mgr.Displayed(), 2)
	e.backend.snapshot(func() { assert.Empty(t, e.backend.created) })
}

func TestSend_ReplyShownWhenBackendNeverNamesChat(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: false}, nil)

	e.submit("hi")
	s := e.stream()
	e.send(s, "BOT_Response", `{"content":"Hel"}`)
	e.send(s, "BOT_Response", `{"content":"lo"}`)
	e.send(s, "done", `{}`)
	e.sched.TickN(3)

	assert.False(t, e.mgr.Busy())
	assert.Equal(t, model.NoChat, e.mgr.CurrentChat())
	assert.Equal(t, []string{"user:hi", "assistant:Hello"}, contents(e.mgr.Displayed()))

	e.mgr.NewChat()
	assert.Empty(t, e.mgr.Displayed())
}

func TestSend_ErrorKeepsPartialContent(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)

	e.submit("q")
	s := e.stream()
	e.send(s, "BOT_Response", `{"content":"part"}`)
	e.sched.Tick()
	e.send(s, "error", `{"message":"model crashed"}`)

	assert.Equal(t, "model crashed", e.mgr.Status())
	assert.False(t, e.mgr.Busy())
	assert.Equal(t, "part", e.mgr.Displayed()[1].Content)
}

// =============================================================================
// CHAT SWITCHING
// =============================================================================

func TestSelectChat_CancelsStreamAndIgnoresLateDone(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.backend.setMessages(7, model.Message{ID: "7:1", Role: model.RoleUser, Content: "old"})

	e.submit("question")
	s := e.stream()
	e.send(s, "BOT_Response", `{"content":"ans"}`)

	e.mgr.SelectChat(7)
	assert.False(t, e.mgr.Busy())
	assert.Error(t, s.ctx.Err(), "connection closed on switch")
	assert.Empty(t, e.mgr.Status())
	assert.Empty(t, e.mgr.Draft())

	e.send(s, "done", `{}`)
	e.sched.TickN(5)
	e.finish(s, nil)

	e.until(func() bool { return len(e.mgr.persisted) == 1 })
	assert.Equal(t, []string{"user:old"}, contents(e.mgr.Displayed()))
	assert.Empty(t, e.mgr.Status())
}

func TestSelectChat_SameChatIsNoOp(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.submit("q")
	s := e.stream()

	e.mgr.SelectChat(42)
	assert.True(t, e.mgr.Busy())
	assert.NoError(t, s.ctx.Err())
}

func TestNewChat_ClearsEverything(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.submit("q")
	e.stream()

	e.mgr.SetDraft("unsent")
	e.mgr.NewChat()

	assert.Equal(t, model.NoChat, e.mgr.CurrentChat())
	assert.Empty(t, e.mgr.Displayed())
	assert.Empty(t, e.mgr.Draft())
	assert.False(t, e.mgr.Busy())
}

func TestSelectDuringPreparationDropsSend(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)

	e.submit("q")
	e.mgr.SelectChat(3)
	e.until(func() bool {
		chats := e.mgr.Chats()
		return len(chats) == 1 && chats[0].ID == 42
	})

	assert.Equal(t, model.ChatID(3), e.mgr.CurrentChat())
	assert.Len(t, e.tr.started, 0)
	assert.Empty(t, e.mgr.overlay)
}

func TestDeleteChat_Current(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.backend.chats = []model.Chat{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	e.mgr.Start()
	e.until(func() bool { return len(e.mgr.Chats()) == 2 })

	e.mgr.SelectChat(1)
	e.mgr.DeleteChat(1)
	e.until(func() bool { return len(e.mgr.Chats()) == 1 })

	assert.Equal(t, model.NoChat, e.mgr.CurrentChat())
	assert.Equal(t, model.ChatID(2), e.mgr.Chats()[0].ID)
}

func TestDeleteChat_Failure(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.backend.chats = []model.Chat{{ID: 1, Title: "a"}}
	e.backend.deleteErr = errors.New("nope")
	e.mgr.Start()
	e.until(func() bool { return len(e.mgr.Chats()) == 1 })

	e.mgr.DeleteChat(1)
	e.until(func() bool { return e.mgr.Status() != "" })
	assert.Contains(t, e.mgr.Status(), "Failed to delete chat")
	assert.Len(t, e.mgr.Chats(), 1)
}

func TestSelectChat_ShowsCachedHistoryFirst(t *testing.T) {
	cache, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.PutMessages(ctx, 5, []model.Message{
		{ID: "5:1", Role: model.RoleUser, Content: "cached"},
	}))

	e := newEnv(t, Options{CreateChatFirst: true}, cache)
	e.backend.setMessages(5,
		model.Message{ID: "5:1", Role: model.RoleUser, Content: "cached"},
		model.Message{ID: "5:2", Role: model.RoleAssistant, Content: "fresh"},
	)

	e.mgr.SelectChat(5)
	e.until(func() bool { return e.mgr.haveFresh })
	assert.Equal(t, []string{"user:cached", "assistant:fresh"}, contents(e.mgr.Displayed()))

	stored, err := cache.Messages(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

// =============================================================================
// MODEL AND FILES
// =============================================================================

func TestStart_AdoptsSavedPreference(t *testing.T) {
	e := newEnv(t, Options{}, nil)
	e.backend.pref = model.Preference{Provider: model.ProviderGemini, Model: "gemini-1.5-flash"}
	assert.Equal(t, model.DefaultModel, e.mgr.Model())

	e.mgr.Start()
	e.until(func() bool { return e.mgr.Model() == "gemini-1.5-flash" })
}

func TestSetModel_PersistsPreference(t *testing.T) {
	e := newEnv(t, Options{Model: "llama3.2"}, nil)

	e.mgr.SetModel("gpt-4o-mini")
	e.mgr.SetModel("  ")
	assert.Equal(t, "gpt-4o-mini", e.mgr.Model())

	require.Eventually(t, func() bool {
		var n int
		e.backend.snapshot(func() { n = len(e.backend.prefs) })
		return n == 1
	}, time.Second, 5*time.Millisecond)
	e.backend.snapshot(func() {
		assert.Equal(t, model.ProviderOpenAI, e.backend.prefs[0].Provider)
		assert.Equal(t, "sess", e.backend.prefs[0].SessionID)
	})
}

func TestClearFiles(t *testing.T) {
	e := newEnv(t, Options{}, nil)
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, e.mgr.AddAttachment(path))

	e.mgr.ClearFiles()
	assert.Empty(t, e.mgr.Attachments())
	e.until(func() bool { return e.mgr.Status() != "" })
	assert.Equal(t, "Uploaded files cleared", e.mgr.Status())
	e.backend.snapshot(func() { assert.Equal(t, 1, e.backend.cleared) })
}

func TestCancel_KeepsPartialReply(t *testing.T) {
	e := newEnv(t, Options{CreateChatFirst: true}, nil)
	e.submit("q")
	s := e.stream()
	e.send(s, "BOT_Response", `{"content":"half"}`)
	e.sched.Tick()

	e.mgr.Cancel()
	assert.False(t, e.mgr.Busy())
	assert.Equal(t, "half", e.mgr.Displayed()[1].Content)
	assert.Greater(t, e.updates, 0)
}
