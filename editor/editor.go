// Package editor connects the engine to Neovim: it turns plugin notifications
// into cursor events and document changes, reads buffer text for outcome
// sampling and shows suggestions through the Lua side of the plugin.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codesuggest/engine"
	"codesuggest/language"
	"codesuggest/logger"
	"codesuggest/text"
	"codesuggest/types"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/neovim/go-client/nvim"
)

// EventMethod is the notification the Lua plugin sends
const EventMethod = "codesuggest_event"

const documentCacheSize = 256

// Client is the part of the Neovim API the editor uses. *nvim.Nvim implements it.
type Client interface {
	CurrentBuffer() (nvim.Buffer, error)
	CurrentWindow() (nvim.Window, error)
	WindowCursor(window nvim.Window) ([2]int, error)
	BufferLines(buffer nvim.Buffer, start int, end int, strict bool) ([][]byte, error)
	BufferName(buffer nvim.Buffer) (string, error)
	BufferOption(buffer nvim.Buffer, name string, result any) error
	ExecLua(code string, result any, args ...any) error
}

// Suggester is the engine surface the editor drives
type Suggester interface {
	Suggest(ctx context.Context, ev engine.CursorEvent) (engine.Suggestion, error)
	DocumentChanged(change engine.DocumentChange)
}

// Payload is the argument table of a codesuggest_event notification
type Payload struct {
	Trigger string `msgpack:"trigger"`
	Buffer  int    `msgpack:"buf"`
	Line    int    `msgpack:"line"`
	Column  int    `msgpack:"col"`
	Text    string `msgpack:"text"`
}

type Editor struct {
	mu        sync.RWMutex
	client    Client
	suggester Suggester

	docs      *lru.Cache[nvim.Buffer, types.DocumentInfo]
	maxTokens int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an editor. maxTokens bounds the prompt taken around the cursor
// (0 = whole buffer).
func New(maxTokens int) (*Editor, error) {
	docs, err := lru.New[nvim.Buffer, types.DocumentInfo](documentCacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Editor{
		docs:      docs,
		maxTokens: maxTokens,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Bind sets the engine that receives editor events
func (e *Editor) Bind(s Suggester) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suggester = s
}

// SetNvim attaches a Neovim connection and registers the event handler on it
func (e *Editor) SetNvim(n *nvim.Nvim) error {
	e.setClient(n)

	if err := n.RegisterHandler(EventMethod, func(_ *nvim.Nvim, event string, payload Payload) {
		e.HandleEvent(event, payload)
	}); err != nil {
		return fmt.Errorf("error registering event handler: %w", err)
	}
	return nil
}

func (e *Editor) setClient(c Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = c
	e.docs.Purge()
}

// Close stops waiting on pending suggestions
func (e *Editor) Close() {
	e.cancel()
	e.wg.Wait()
}

// HandleEvent dispatches one plugin notification
func (e *Editor) HandleEvent(event string, payload Payload) {
	e.mu.RLock()
	client, suggester := e.client, e.suggester
	e.mu.RUnlock()

	if client == nil || suggester == nil {
		logger.Warn("editor: %s before attach, dropped", event)
		return
	}
	if e.ctx.Err() != nil {
		return
	}

	switch event {
	case "suggest":
		e.handleSuggest(client, suggester, types.ParseTriggerMode(payload.Trigger))
	case "changed":
		e.handleChanged(client, suggester, payload)
	case "forget":
		e.docs.Remove(nvim.Buffer(payload.Buffer))
	default:
		logger.Debug("editor: unknown event %q", event)
	}
}

func (e *Editor) handleSuggest(client Client, suggester Suggester, trigger types.TriggerMode) {
	ev, err := e.snapshot(client, trigger)
	if err != nil {
		logger.Error("editor: snapshot failed: %v", err)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		s, err := suggester.Suggest(e.ctx, ev)
		switch {
		case errors.Is(err, engine.ErrSuperseded), errors.Is(err, engine.ErrStopped), errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Warn("editor: suggestion at %s failed: %v", ev.Position, err)
			return
		}
		if s.Text == "" {
			return
		}
		if err := show(client, s); err != nil {
			logger.Error("editor: show suggestion %d: %v", s.PointID, err)
		}
	}()
}

// snapshot reads the cursor and buffer text for a cursor event
func (e *Editor) snapshot(client Client, trigger types.TriggerMode) (engine.CursorEvent, error) {
	buf, err := client.CurrentBuffer()
	if err != nil {
		return engine.CursorEvent{}, fmt.Errorf("current buffer: %w", err)
	}
	win, err := client.CurrentWindow()
	if err != nil {
		return engine.CursorEvent{}, fmt.Errorf("current window: %w", err)
	}
	cursor, err := client.WindowCursor(win)
	if err != nil {
		return engine.CursorEvent{}, fmt.Errorf("window cursor: %w", err)
	}
	doc, err := e.document(client, buf)
	if err != nil {
		return engine.CursorEvent{}, err
	}
	raw, err := client.BufferLines(buf, 0, -1, false)
	if err != nil {
		return engine.CursorEvent{}, fmt.Errorf("buffer lines: %w", err)
	}

	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	// Neovim rows are 1-based, columns are 0-based bytes
	pos := types.Position{Line: cursor[0] - 1, Column: cursor[1]}

	return engine.CursorEvent{
		Document: doc,
		Position: pos,
		Prompt:   BuildPrompt(lines, pos, e.maxTokens),
		Trigger:  trigger,
	}, nil
}

// document returns the cached path and language of buf
func (e *Editor) document(client Client, buf nvim.Buffer) (types.DocumentInfo, error) {
	if doc, ok := e.docs.Get(buf); ok {
		return doc, nil
	}

	name, err := client.BufferName(buf)
	if err != nil {
		return types.DocumentInfo{}, fmt.Errorf("buffer name: %w", err)
	}
	var filetype string
	if err := client.BufferOption(buf, "filetype", &filetype); err != nil {
		return types.DocumentInfo{}, fmt.Errorf("buffer filetype: %w", err)
	}

	doc := types.DocumentInfo{Path: name, Language: language.Canonical(filetype)}
	e.docs.Add(buf, doc)
	return doc, nil
}

func (e *Editor) handleChanged(client Client, suggester Suggester, payload Payload) {
	buf := nvim.Buffer(payload.Buffer)
	doc, err := e.document(client, buf)
	if err != nil {
		logger.Error("editor: change in buffer %d: %v", payload.Buffer, err)
		return
	}
	suggester.DocumentChanged(engine.DocumentChange{
		Path:       doc.Path,
		RangeStart: types.Position{Line: payload.Line, Column: payload.Column},
		Text:       payload.Text,
	})
}

// ReadSpan implements types.DocumentReader over the buffer showing path
func (e *Editor) ReadSpan(path string, from types.Position, extraLines int) (string, error) {
	e.mu.RLock()
	client := e.client
	e.mu.RUnlock()
	if client == nil {
		return "", fmt.Errorf("no editor attached")
	}

	buf, ok := e.bufferFor(path)
	if !ok {
		return "", fmt.Errorf("no buffer for %s", path)
	}
	raw, err := client.BufferLines(buf, from.Line, from.Line+extraLines+1, false)
	if err != nil {
		return "", fmt.Errorf("read %s:%d: %w", path, from.Line, err)
	}

	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return text.SpanText(lines, 0, from.Column, extraLines), nil
}

func (e *Editor) bufferFor(path string) (nvim.Buffer, bool) {
	for _, buf := range e.docs.Keys() {
		if doc, ok := e.docs.Peek(buf); ok && doc.Path == path {
			return buf, true
		}
	}
	return 0, false
}

const showLua = `return require("codesuggest").show(...)`

func show(client Client, s engine.Suggestion) error {
	return client.ExecLua(showLua, nil, s.PointID, s.Text, s.Position.Line, s.Position.Column, s.Mode.String())
}
