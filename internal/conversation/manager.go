// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/overlay"
	"github.com/jeranaias/alfred-tui/internal/stream"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the REST surface the manager needs. *api.Client implements it.
type Backend interface {
	ListChats(ctx context.Context, sessionID string) ([]model.Chat, error)
	CreateChat(ctx context.Context, sessionID, title string) (model.Chat, error)
	DeleteChat(ctx context.Context, id model.ChatID) error
	ListMessages(ctx context.Context, id model.ChatID) ([]model.Message, error)
	GetPreference(ctx context.Context, sessionID string) (model.Preference, error)
	SetPreference(ctx context.Context, pref model.Preference) error
	UploadFile(ctx context.Context, sessionID, path string) (model.UploadResult, error)
	ClearFiles(ctx context.Context, sessionID string) error
}

// Cache holds previously fetched chats and histories. *storage.HistoryCache
// implements it.
type Cache interface {
	Chats(ctx context.Context, sessionID string) ([]model.Chat, error)
	PutChats(ctx context.Context, sessionID string, chats []model.Chat) error
	Messages(ctx context.Context, chat model.ChatID) ([]model.Message, error)
	PutMessages(ctx context.Context, chat model.ChatID, msgs []model.Message) error
	DeleteChat(ctx context.Context, chat model.ChatID) error
}

// Streamer opens stream sessions. *stream.Controller implements it.
type Streamer interface {
	Open(chat model.ChatID, prompt string, cb stream.Callbacks) *stream.Handle
	Current() *stream.Handle
	Cancel()
}

// Options configures a Manager.
type Options struct {
	SessionID string
	// Model is the initial model. When empty, the backend's saved
	// preference is used, falling back to model.DefaultModel.
	Model string
	// CreateChatFirst creates the chat before streaming. When false the
	// stream opens without a chat and the backend's start event names it.
	CreateChatFirst bool
	// OnUpdate runs on the loop after every visible change.
	OnUpdate func()
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager holds the state of one chat window.
type Manager struct {
	loop     loop.Loop
	backend  Backend
	cache    Cache
	streamer Streamer
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	chats      []model.Chat
	chatsFresh bool
	chatsSeq   uint64

	current   model.ChatID
	persisted []model.Message
	overlay   []model.Message
	haveFresh bool
	loadSeq   uint64

	// epoch changes whenever the selected chat is replaced by the user, so
	// a send prepared for the old selection can tell it is stale.
	epoch uint64

	draft       string
	attachments []string
	status      string
	model       string
	modelChosen bool
	preparing   bool
}

// NewManager creates a manager. cache may be nil.
func NewManager(l loop.Loop, b Backend, c Cache, s Streamer, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		loop:     l,
		backend:  b,
		cache:    c,
		streamer: s,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		model:    opts.Model,
	}
	if m.model == "" {
		m.model = model.DefaultModel
	} else {
		m.modelChosen = true
	}
	return m
}

// Start loads the chat list and, if no model was configured, the saved
// preference.
func (m *Manager) Start() {
	m.RefreshChats()
	if m.modelChosen {
		return
	}
	go func() {
		pref, err := m.backend.GetPreference(m.ctx, m.opts.SessionID)
		if err != nil {
			log.Printf("CHAT | preference load failed: %v", err)
			return
		}
		m.loop.Post(func() {
			if !m.modelChosen && pref.Model != "" {
				m.model = pref.Model
				m.changed()
			}
		})
	}()
}

// Close cancels the current stream and any outstanding backend calls.
func (m *Manager) Close() {
	m.streamer.Cancel()
	m.cancel()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Displayed returns persisted history merged with the overlay. With no chat
// selected only turns sent before the backend named a chat are shown.
func (m *Manager) Displayed() []model.Message {
	if !m.current.Valid() {
		if len(m.overlay) == 0 {
			return nil
		}
		return slices.Clone(m.overlay)
	}
	return overlay.Merge(m.persisted, m.overlay)
}

// Busy reports whether a send is being prepared or a reply is streaming.
func (m *Manager) Busy() bool {
	return m.preparing || m.streamer.Current() != nil
}

// Streaming reports whether a reply is streaming.
func (m *Manager) Streaming() bool {
	return m.streamer.Current() != nil
}

func (m *Manager) Status() string            { return m.status }
func (m *Manager) CurrentChat() model.ChatID { return m.current }
func (m *Manager) Model() string             { return m.model }
func (m *Manager) SessionID() string         { return m.opts.SessionID }
func (m *Manager) Draft() string             { return m.draft }
func (m *Manager) Chats() []model.Chat       { return slices.Clone(m.chats) }
func (m *Manager) Attachments() []string     { return slices.Clone(m.attachments) }
func (m *Manager) SetDraft(text string)      { m.draft = text }
func (m *Manager) SetStatus(text string)     { m.status = text; m.changed() }
func (m *Manager) ChatsLoaded() bool         { return m.chatsFresh || len(m.chats) > 0 }

// CurrentTitle returns the selected chat's title, if it is in the list.
func (m *Manager) CurrentTitle() string {
	for _, c := range m.chats {
		if c.ID == m.current {
			return c.Title
		}
	}
	return ""
}

// =============================================================================
// CHATS
// =============================================================================

// SelectChat switches to chat id. Switching to a different chat cancels the
// current stream and clears the overlay, status and draft. Selecting the
// current chat does nothing.
func (m *Manager) SelectChat(id model.ChatID) {
	if id == m.current {
		return
	}
	if !id.Valid() {
		m.NewChat()
		return
	}
	m.reset()
	m.current = id
	log.Printf("CHAT | select chat=%d", id)
	m.loadMessages(id, true)
	m.changed()
}

// NewChat deselects the current chat; the next send creates one.
func (m *Manager) NewChat() {
	m.reset()
	m.current = model.NoChat
	m.changed()
}

// Cancel stops the reply in progress. Content received so far stays.
func (m *Manager) Cancel() {
	if h := m.streamer.Current(); h != nil {
		h.Cancel()
		m.status = "Reply cancelled"
		m.changed()
	}
}

func (m *Manager) reset() {
	m.streamer.Cancel()
	m.epoch++
	m.loadSeq++
	m.preparing = false
	m.persisted = nil
	m.overlay = nil
	m.haveFresh = false
	m.status = ""
	m.draft = ""
}

// DeleteChat deletes chat id on the backend. Deleting the selected chat
// behaves like NewChat.
func (m *Manager) DeleteChat(id model.ChatID) {
	go func() {
		err := m.backend.DeleteChat(m.ctx, id)
		if err == nil && m.cache != nil {
			if cerr := m.cache.DeleteChat(m.ctx, id); cerr != nil {
				log.Printf("CHAT | cache delete failed chat=%d: %v", id, cerr)
			}
		}
		m.loop.Post(func() {
			if err != nil {
				m.status = fmt.Sprintf("Failed to delete chat: %v", err)
				m.changed()
				return
			}
			log.Printf("CHAT | deleted chat=%d", id)
			m.chats = slices.DeleteFunc(slices.Clone(m.chats), func(c model.Chat) bool { return c.ID == id })
			if m.current == id {
				m.NewChat()
				return
			}
			m.changed()
		})
	}()
}

// RefreshChats reloads the chat list, showing the cached list first if
// nothing fresher is known.
func (m *Manager) RefreshChats() {
	m.chatsSeq++
	seq := m.chatsSeq
	useCache := m.cache != nil && !m.chatsFresh
	sid := m.opts.SessionID

	go func() {
		if useCache {
			if cached, err := m.cache.Chats(m.ctx, sid); err == nil {
				m.loop.Post(func() {
					if !m.chatsFresh && seq == m.chatsSeq {
						m.chats = cached
						m.changed()
					}
				})
			}
		}

		chats, err := m.backend.ListChats(m.ctx, sid)
		if err == nil && m.cache != nil {
			if cerr := m.cache.PutChats(m.ctx, sid, chats); cerr != nil {
				log.Printf("CHAT | cache chats failed: %v", cerr)
			}
		}
		m.loop.Post(func() {
			if seq != m.chatsSeq {
				return
			}
			if err != nil {
				m.status = fmt.Sprintf("Failed to load chats: %v", err)
				m.changed()
				return
			}
			m.chats = chats
			m.chatsFresh = true
			m.changed()
		})
	}()
}

func (m *Manager) addChat(chat model.Chat) {
	for _, c := range m.chats {
		if c.ID == chat.ID {
			return
		}
	}
	m.chats = append([]model.Chat{chat}, m.chats...)
}

func (m *Manager) loadMessages(chat model.ChatID, useCache bool) {
	m.loadSeq++
	seq := m.loadSeq
	useCache = useCache && m.cache != nil

	go func() {
		if useCache {
			if cached, err := m.cache.Messages(m.ctx, chat); err == nil {
				m.loop.Post(func() {
					if seq == m.loadSeq && m.current == chat && !m.haveFresh {
						m.persisted = cached
						m.changed()
					}
				})
			}
		}

		msgs, err := m.backend.ListMessages(m.ctx, chat)
		if err == nil && m.cache != nil {
			if cerr := m.cache.PutMessages(m.ctx, chat, msgs); cerr != nil {
				log.Printf("CHAT | cache messages failed chat=%d: %v", chat, cerr)
			}
		}
		m.loop.Post(func() {
			if seq != m.loadSeq || m.current != chat {
				return
			}
			if err != nil {
				m.status = fmt.Sprintf("Failed to load messages: %v", err)
				m.changed()
				return
			}
			m.persisted = msgs
			m.haveFresh = true
			m.changed()
		})
	}()
}

// =============================================================================
// MODEL AND FILES
// =============================================================================

// SetModel selects the model for future replies and saves the preference
// in the background.
func (m *Manager) SetModel(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	m.model = name
	m.modelChosen = true
	m.persistPreference()
	m.changed()
}

func (m *Manager) persistPreference() {
	pref := model.NewPreference(m.opts.SessionID, m.model)
	go func() {
		if err := m.backend.SetPreference(m.ctx, pref); err != nil {
			log.Printf("CHAT | preference save failed model=%s: %v", pref.Model, err)
		}
	}()
}

// AddAttachment queues a file to upload with the next send.
func (m *Manager) AddAttachment(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	m.attachments = append(slices.Clone(m.attachments), abs)
	m.changed()
	return nil
}

// RemoveAttachment drops the queued attachment at index i.
func (m *Manager) RemoveAttachment(i int) {
	if i < 0 || i >= len(m.attachments) {
		return
	}
	m.attachments = slices.Delete(slices.Clone(m.attachments), i, i+1)
	m.changed()
}

// ClearFiles drops queued attachments and clears the files already
// uploaded to the session.
func (m *Manager) ClearFiles() {
	m.attachments = nil
	m.changed()
	go func() {
		err := m.backend.ClearFiles(m.ctx, m.opts.SessionID)
		m.loop.Post(func() {
			if err != nil {
				m.status = fmt.Sprintf("Failed to clear files: %v", err)
			} else {
				m.status = "Uploaded files cleared"
			}
			m.changed()
		})
	}()
}

// =============================================================================
// SEND
// =============================================================================

type prepared struct {
	created *model.Chat
	names   []string
	err     error
}

// Send sends the draft. It returns ErrEmptyMessage or ErrBusy when the send
// is refused; later failures are reported through Status.
func (m *Manager) Send() error {
	text := strings.TrimSpace(m.draft)
	if text == "" {
		return ErrEmptyMessage
	}
	if m.Busy() {
		return ErrBusy
	}

	epoch := m.epoch
	create := !m.current.Valid() && m.opts.CreateChatFirst
	paths := slices.Clone(m.attachments)
	sid := m.opts.SessionID

	m.preparing = true
	m.status = ""
	m.changed()

	go func() {
		p := m.prepare(sid, text, create, paths)
		m.loop.Post(func() { m.beginStream(epoch, text, p) })
	}()
	return nil
}

// prepare runs off the loop and only touches the backend.
func (m *Manager) prepare(sid, text string, create bool, paths []string) prepared {
	var p prepared
	if create {
		chat, err := m.backend.CreateChat(m.ctx, sid, model.GenerateTitle(text))
		if err != nil {
			p.err = &SendError{Stage: StageCreateChat, Err: err}
			return p
		}
		p.created = &chat
	}
	for _, path := range paths {
		res, err := m.backend.UploadFile(m.ctx, sid, path)
		if err != nil {
			p.err = &SendError{Stage: StageUpload, Path: path, Err: err}
			return p
		}
		name := res.Filename
		if name == "" {
			name = filepath.Base(path)
		}
		p.names = append(p.names, name)
	}
	return p
}

func (m *Manager) beginStream(epoch uint64, text string, p prepared) {
	if p.created != nil {
		m.addChat(*p.created)
	}
	if epoch != m.epoch {
		log.Printf("CHAT | dropping send prepared for a previous selection")
		m.changed()
		return
	}
	m.preparing = false

	if p.created != nil {
		m.current = p.created.ID
		m.loadSeq++
		m.persisted = nil
		m.haveFresh = true
		log.Printf("CHAT | created chat=%d title=%q", p.created.ID, p.created.Title)
	}
	if p.err != nil {
		m.status = p.err.Error()
		log.Printf("CHAT | send aborted: %v", p.err)
		m.changed()
		return
	}

	m.attachments = nil
	m.draft = ""

	user := overlay.NewMessage(model.RoleUser, text)
	user.AttachmentNames = p.names
	assistant := overlay.NewMessage(model.RoleAssistant, "")
	m.overlay = append(slices.Clip(m.overlay), user, assistant)

	m.persistPreference()

	id := assistant.ID
	m.streamer.Open(m.current, text, stream.Callbacks{
		OnChat: func(chat model.ChatID) {
			m.current = chat
			m.haveFresh = true
			m.RefreshChats()
			m.changed()
		},
		OnThinking: func() {
			m.overlay = overlay.SetContent(m.overlay, id, overlay.Placeholder, true)
			m.changed()
		},
		OnToken: func(tok string) {
			m.overlay = overlay.AppendToken(m.overlay, id, tok)
			m.changed()
		},
		OnComplete: func() {
			if m.current.Valid() {
				m.loadMessages(m.current, false)
			}
			m.changed()
		},
		OnError: func(err error) {
			m.status = err.Error()
			m.changed()
		},
	})
	m.changed()
}

func (m *Manager) changed() {
	if m.opts.OnUpdate != nil {
		m.opts.OnUpdate()
	}
}
