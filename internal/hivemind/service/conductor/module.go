// Package conductor wires the Conductor Runtime's components — the Event
// Store, Memory Store, per-run Writer Actors, capability workers, the
// Conductor Actor, the restart supervision tree, and the Watcher — into one
// module, following the Config → Complete() → New(ctx, deps) convention used
// throughout the rest of this service.
package conductor

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	coreconductor "github.com/kiosk404/echoryn/internal/hivemind/service/conductor/conductor"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/harness"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/memory"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/supervisor"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/watcher"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/agentharness"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/researcher"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/terminal"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/writerchild"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
	"github.com/kiosk404/echoryn/internal/hivemind/service/llm"
	llmEntity "github.com/kiosk404/echoryn/internal/hivemind/service/llm/domain/entity"
	"github.com/kiosk404/echoryn/pkg/logger"
)

// Config holds the configuration for the Conductor Runtime module.
type Config struct {
	// EventStoreBackend selects "inmemory" or "boltdb". Default: "inmemory".
	EventStoreBackend string `json:"event_store_backend,omitempty"`
	// EventStorePath is the BoltDB file path when EventStoreBackend="boltdb".
	EventStorePath string `json:"event_store_path,omitempty"`

	// Memory configures the C2 Memory Store submodule.
	Memory memory.Config `json:"memory,omitempty"`

	// RunsDir is where each run's Writer Actor persists document snapshots.
	// Default: "data/conductor/runs".
	RunsDir string `json:"runs_dir,omitempty"`
	// WriterMaxQueue bounds each run's Writer Actor inbound queue. Default: 256.
	WriterMaxQueue int `json:"writer_max_queue,omitempty"`
	// ConductorInbox bounds the Conductor Actor's inbound message queue.
	// Default: 256.
	ConductorInbox int `json:"conductor_inbox,omitempty"`

	// PolicyModel selects the chat model the policy advisor consults. A
	// zero value uses the LLM module's configured default chat model.
	PolicyModel llmEntity.ModelRef `json:"policy_model,omitempty"`
	// DrafterModel selects the chat model the writer-child capability uses
	// to draft prose. A zero value uses the LLM module's default.
	DrafterModel llmEntity.ModelRef `json:"drafter_model,omitempty"`
	// HarnessModel selects the chat model the "harness" capability's
	// bounded-turn loop consults for its next tool call. A zero value uses
	// the LLM module's default.
	HarnessModel llmEntity.ModelRef `json:"harness_model,omitempty"`
	// Harness configures the C6 Agent Harness's turn/retry budget.
	Harness harness.Config `json:"harness,omitempty"`

	// Watcher configures the C9 pattern detector.
	Watcher watcher.Config `json:"watcher,omitempty"`

	// ResearchMaxResults bounds citations gathered per researcher call.
	// Default: 8.
	ResearchMaxResults int `json:"research_max_results,omitempty"`
}

// CompletedConfig is Config after defaults have been applied.
type CompletedConfig struct {
	config Config
}

// Complete validates and defaults c.
func (c *Config) Complete() CompletedConfig {
	if c.EventStoreBackend == "" {
		c.EventStoreBackend = "inmemory"
	}
	if c.EventStorePath == "" {
		c.EventStorePath = "data/conductor/events.db"
	}
	if c.RunsDir == "" {
		c.RunsDir = "data/conductor/runs"
	}
	if c.WriterMaxQueue <= 0 {
		c.WriterMaxQueue = 256
	}
	if c.ConductorInbox <= 0 {
		c.ConductorInbox = 256
	}
	if c.ResearchMaxResults <= 0 {
		c.ResearchMaxResults = 8
	}
	return CompletedConfig{config: *c}
}

// Dependencies holds the external modules and adapters the Conductor
// Runtime needs but cannot construct for itself.
type Dependencies struct {
	// LLM is required: it backs the policy advisor and the writer-child
	// capability's drafting model.
	LLM *llm.Module
	// SandboxDialer, when non-nil, enables the terminal capability. A nil
	// dialer means no terminal worker is registered and any SpawnWorker
	// decision naming it folds the run to Blocked with
	// ErrCapabilityUnavailable, per the shell-isolation invariant.
	SandboxDialer terminal.SandboxDialer
	// ResearchProviders, when non-empty, enables the researcher capability.
	ResearchProviders []researcher.Provider
	// MetricsRegisterer is where the Watcher registers its Prometheus
	// counters. A nil registerer disables registration (metrics still
	// count in-process).
	MetricsRegisterer prometheus.Registerer
}

// Module is the top-level Conductor Runtime module.
type Module struct {
	Events      eventstore.Store
	Memory      *memory.Module
	Conductor   *coreconductor.Conductor
	Application *supervisor.Application
	Watcher     *watcher.Watcher

	runsDir        string
	writerMaxQueue int

	mu      sync.Mutex
	writers map[string]*writer.Actor
}

// Close tears the module down in reverse dependency order.
func (m *Module) Close() error {
	m.Watcher.Stop()
	m.Conductor.Stop()
	m.Application.Stop()

	m.mu.Lock()
	for _, w := range m.writers {
		w.Stop()
	}
	m.mu.Unlock()

	if err := m.Memory.Close(); err != nil {
		logger.Error("[Conductor] memory store close failed: %v", err)
	}
	return m.Events.Close()
}

// New builds the Conductor Runtime module from a completed config.
func (c CompletedConfig) New(ctx context.Context, deps Dependencies) (*Module, error) {
	logger.Info("[Conductor] creating Conductor Runtime module...")

	if deps.LLM == nil {
		return nil, fmt.Errorf("conductor: LLM module dependency is required")
	}

	events, err := newEventStore(c.config.EventStoreBackend, c.config.EventStorePath)
	if err != nil {
		return nil, fmt.Errorf("conductor: create event store: %w", err)
	}

	memCfg := c.config.Memory
	memModule, err := memCfg.Complete().New(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor: create memory module: %w", err)
	}

	policyModel, err := resolveChatModel(ctx, deps.LLM, c.config.PolicyModel)
	if err != nil {
		return nil, fmt.Errorf("conductor: resolve policy chat model: %w", err)
	}
	drafterModel, err := resolveChatModel(ctx, deps.LLM, c.config.DrafterModel)
	if err != nil {
		return nil, fmt.Errorf("conductor: resolve drafter chat model: %w", err)
	}
	harnessModel, err := resolveChatModel(ctx, deps.LLM, c.config.HarnessModel)
	if err != nil {
		return nil, fmt.Errorf("conductor: resolve harness chat model: %w", err)
	}

	m := &Module{
		Events:         events,
		Memory:         memModule,
		runsDir:        c.config.RunsDir,
		writerMaxQueue: c.config.WriterMaxQueue,
		writers:        map[string]*writer.Actor{},
	}

	var terminalWorker *terminal.Worker
	var researcherWorker *researcher.Worker

	workers := map[worker.Capability]worker.Worker{}
	if deps.SandboxDialer != nil {
		terminalWorker = terminal.New(deps.SandboxDialer, events)
		workers[worker.CapabilityTerminal] = terminalWorker
		logger.Info("[Conductor] terminal capability enabled")
	} else {
		logger.Info("[Conductor] terminal capability disabled: no sandbox dialer configured")
	}
	if len(deps.ResearchProviders) > 0 {
		researcherWorker = researcher.New(deps.ResearchProviders, events, c.config.ResearchMaxResults)
		workers[worker.CapabilityResearcher] = researcherWorker
		logger.Info("[Conductor] researcher capability enabled (%d providers)", len(deps.ResearchProviders))
	} else {
		logger.Info("[Conductor] researcher capability disabled: no providers configured")
	}
	workers[worker.CapabilityHarness] = agentharness.New(harnessModel, m.WriterActor, terminalWorker, researcherWorker, events, c.config.Harness)
	workers[worker.CapabilityWriterChild] = &dynamicWriterWorker{
		module:  m,
		drafter: &chatModelDrafter{cm: drafterModel},
		events:  events,
	}

	policy := coreconductor.NewLLMPolicyAdvisor(policyModel)

	conductorCfg := coreconductor.Config{
		Events:  events,
		Workers: workers,
		Policy:  policy,
		Inbox:   c.config.ConductorInbox,
	}
	completedConductorCfg, err := conductorCfg.Complete()
	if err != nil {
		return nil, fmt.Errorf("conductor: complete conductor config: %w", err)
	}
	m.Conductor = completedConductorCfg.New(ctx)

	m.Application = supervisor.NewApplication()

	metrics := watcher.NewMetrics(deps.MetricsRegisterer)
	m.Watcher = watcher.New(events, c.config.Watcher, metrics)
	m.Watcher.Start(ctx)

	logger.Info("[Conductor] Conductor Runtime module initialized (event_store=%s)", c.config.EventStoreBackend)
	return m, nil
}

func newEventStore(backend, path string) (eventstore.Store, error) {
	switch backend {
	case "boltdb":
		store, err := eventstore.OpenBoltStore(path)
		if err != nil {
			return nil, err
		}
		logger.Info("[Conductor] using BoltDB event store at %s", path)
		return store, nil
	default:
		logger.Info("[Conductor] using in-memory event store")
		return eventstore.NewInMemoryStore(), nil
	}
}

func resolveChatModel(ctx context.Context, llmModule *llm.Module, ref llmEntity.ModelRef) (model.BaseChatModel, error) {
	if ref.ProviderID == "" && ref.ModelID == "" {
		return llmModule.Manager.GetDefaultChatModel(ctx)
	}
	return llmModule.Manager.GetChatModel(ctx, ref)
}

// ExecuteTask builds the Run's own RunDocument and Writer Actor, binds it to
// the Conductor before the first dispatch cycle can fire, then delegates to
// the Conductor Actor.
func (m *Module) ExecuteTask(ctx context.Context, req coreconductor.ExecuteTaskRequest) (coreconductor.TaskState, error) {
	if req.Objective == "" || req.DesktopID == "" {
		return coreconductor.TaskState{}, coreconductor.ErrInvalidRequest
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}

	doc := rundoc.NewRunDocument(req.RunID, req.Objective, "")
	w := writer.NewActor(doc, m.runsDir, m.Events, m.writerMaxQueue)
	w.Start(ctx)

	m.mu.Lock()
	m.writers[req.RunID] = w
	m.mu.Unlock()

	m.Conductor.BindWriter(req.RunID, w)

	return m.Conductor.ExecuteTask(ctx, req)
}

// GetTaskState returns a point-in-time snapshot of a run's state.
func (m *Module) GetTaskState(runID string) (coreconductor.TaskState, error) {
	return m.Conductor.GetTaskState(runID)
}

// WriterActor returns the run-scoped Writer Actor bound to runID, if any.
func (m *Module) WriterActor(runID string) (*writer.Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.writers[runID]
	return w, ok
}

// dynamicWriterWorker adapts the single-actor-bound writerchild.Worker to
// the Conductor's one-worker-per-capability registry: rather than binding
// one Writer Actor at construction, it resolves the right one per call from
// req.RunID, the same run-scoped lookup DesktopRegistry uses for transient
// desktop actors.
type dynamicWriterWorker struct {
	module  *Module
	drafter writerchild.Drafter
	events  eventstore.Store
}

func (d *dynamicWriterWorker) Capability() worker.Capability { return worker.CapabilityWriterChild }

func (d *dynamicWriterWorker) Run(ctx context.Context, req worker.Request) worker.Result {
	w, ok := d.module.WriterActor(req.RunID)
	if !ok {
		return worker.Result{
			Err:         fmt.Errorf("conductor: no writer actor bound for run %s", req.RunID),
			FailureKind: worker.FailureKindError,
		}
	}
	return writerchild.New(w, d.drafter, d.events).Run(ctx, req)
}

// chatModelDrafter drafts prose for the writer-child capability by asking
// an eino chat model directly, the same Generate call the policy advisor
// makes of its own model.
type chatModelDrafter struct {
	cm model.BaseChatModel
}

func (c *chatModelDrafter) Draft(ctx context.Context, objective, headContent string) (string, error) {
	if c.cm == nil {
		return "", fmt.Errorf("conductor: no drafter chat model configured")
	}
	msgs := []*schema.Message{
		{Role: schema.System, Content: "You draft concise markdown prose for a shared run document. Reply with the prose only, no headings unless asked, no surrounding commentary."},
		{Role: schema.User, Content: fmt.Sprintf("Current document:\n%s\n\nDraft this next: %s", headContent, objective)},
	}
	out, err := c.cm.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}
