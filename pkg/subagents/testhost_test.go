package subagents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	tooltypes "github.com/crewkit/crewkit/pkg/types/tools"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) GenerateSchema() *jsonschema.Schema { return &jsonschema.Schema{} }
func (f *fakeTool) Name() string                       { return f.name }
func (f *fakeTool) Description() string                { return "fake tool for tests" }
func (f *fakeTool) ValidateInput(string) error         { return nil }
func (f *fakeTool) Execute(context.Context, string) tooltypes.ToolResult {
	return tooltypes.ToolResult{Result: "ok"}
}
func (f *fakeTool) TracingKVs(string) ([]attribute.KeyValue, error) { return nil, nil }

// fakeThread scripts one SendMessage exchange
type fakeThread struct {
	mu       sync.Mutex
	reply    string
	err      error
	usage    llmtypes.Usage
	delay    time.Duration
	panicMsg string
	config   llmtypes.Config

	messages []string
	lastCtx  context.Context
}

func (f *fakeThread) SendMessage(ctx context.Context, message string, _ llmtypes.MessageOpt) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.lastCtx = ctx
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeThread) Usage() llmtypes.Usage      { return f.usage }
func (f *fakeThread) GetConfig() llmtypes.Config { return f.config }

func (f *fakeThread) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeThread) runContext() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCtx
}

// testHost is a scriptable Host implementation
type testHost struct {
	name       string
	model      string
	isSubagent bool
	tools      map[string]tooltypes.Tool
	skills     map[string]string

	thread    *fakeThread
	threadErr error

	mu         sync.Mutex
	lastConfig llmtypes.Config
	lastPrompt string
	lastTools  []tooltypes.Tool
}

func newTestHost() *testHost {
	return &testHost{
		name:   "host",
		model:  "host-model",
		tools:  make(map[string]tooltypes.Tool),
		skills: make(map[string]string),
		thread: &fakeThread{reply: "done"},
	}
}

func (h *testHost) addTools(names ...string) {
	for _, name := range names {
		h.tools[name] = &fakeTool{name: name}
	}
}

func (h *testHost) Name() string     { return h.name }
func (h *testHost) Model() string    { return h.model }
func (h *testHost) IsSubagent() bool { return h.isSubagent }

func (h *testHost) Tool(name string) (tooltypes.Tool, bool) {
	t, ok := h.tools[name]
	return t, ok
}

func (h *testHost) Tools() []tooltypes.Tool {
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]tooltypes.Tool, 0, len(names))
	for _, name := range names {
		out = append(out, h.tools[name])
	}
	return out
}

func (h *testHost) SkillBody(name string) (string, error) {
	body, ok := h.skills[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return body, nil
}

func (h *testHost) NewThread(_ context.Context, cfg llmtypes.Config, systemPrompt string, tools []tooltypes.Tool) (llmtypes.Thread, error) {
	if h.threadErr != nil {
		return nil, h.threadErr
	}
	h.mu.Lock()
	h.lastConfig = cfg
	h.lastPrompt = systemPrompt
	h.lastTools = tools
	h.mu.Unlock()

	h.thread.config = cfg
	return h.thread, nil
}
