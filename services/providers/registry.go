package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/utils"
)

// Action is a named, invocable capability held by a Registry.
type Action struct {
	Kind ActionKind
	Name string
	// Metadata is *ModelInfo, *EmbedderInfo or *StoreInfo depending on Kind.
	Metadata interface{}
	Handle   interface{}
}

// Key returns the registry key, /<kind>/<name>.
func (a *Action) Key() string {
	return ActionKey(a.Kind, a.Name)
}

// ActionDescriptor is the listing view of an action.
type ActionDescriptor struct {
	Key      string      `json:"key"`
	Kind     ActionKind  `json:"kind"`
	Name     string      `json:"name"`
	Metadata interface{} `json:"metadata"`
}

// Registry holds actions keyed by kind and name. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*Action),
	}
}

// Register adds a single action. It fails with DuplicateRegistration if an
// action of the same kind and name exists.
func (r *Registry) Register(action *Action) error {
	return r.RegisterAll(action)
}

// RegisterAll adds every action or none of them.
func (r *Registry) RegisterAll(actions ...*Action) error {
	seen := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		if err := validateAction(a); err != nil {
			return err
		}
		key := a.Key()
		if _, dup := seen[key]; dup {
			return services.NewDuplicateRegistrationError(a.Name).WithDetail("kind", string(a.Kind))
		}
		seen[key] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range actions {
		if _, exists := r.actions[a.Key()]; exists {
			return services.NewDuplicateRegistrationError(a.Name).WithDetail("kind", string(a.Kind))
		}
	}
	for _, a := range actions {
		r.actions[a.Key()] = a
	}
	return nil
}

// DefineModel registers a model action.
func (r *Registry) DefineModel(name string, info ModelInfo, fn ModelFunc) error {
	return r.Register(NewModelAction(name, info, fn))
}

// DefineEmbedder registers an embedder action.
func (r *Registry) DefineEmbedder(name string, info EmbedderInfo, fn EmbedderFunc) error {
	return r.Register(NewEmbedderAction(name, info, fn))
}

// DefineRetriever registers a retriever action.
func (r *Registry) DefineRetriever(name string, info StoreInfo, fn RetrieverFunc) error {
	return r.Register(NewRetrieverAction(name, info, fn))
}

// DefineIndexer registers an indexer action.
func (r *Registry) DefineIndexer(name string, info StoreInfo, fn IndexerFunc) error {
	return r.Register(NewIndexerAction(name, info, fn))
}

func NewModelAction(name string, info ModelInfo, fn ModelFunc) *Action {
	return &Action{Kind: ActionKindModel, Name: name, Metadata: &info, Handle: fn}
}

func NewEmbedderAction(name string, info EmbedderInfo, fn EmbedderFunc) *Action {
	return &Action{Kind: ActionKindEmbedder, Name: name, Metadata: &info, Handle: fn}
}

func NewRetrieverAction(name string, info StoreInfo, fn RetrieverFunc) *Action {
	return &Action{Kind: ActionKindRetriever, Name: name, Metadata: &info, Handle: fn}
}

func NewIndexerAction(name string, info StoreInfo, fn IndexerFunc) *Action {
	return &Action{Kind: ActionKindIndexer, Name: name, Metadata: &info, Handle: fn}
}

// Resolve returns the action of the given kind and name.
func (r *Registry) Resolve(kind ActionKind, name string) (*Action, error) {
	return r.ResolveKey(ActionKey(kind, name))
}

// ResolveKey returns the action registered under key.
func (r *Registry) ResolveKey(key string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, exists := r.actions[key]
	if !exists {
		return nil, services.NewNotFoundError("action", key)
	}
	return action, nil
}

// Find resolves name regardless of kind. When the name is registered under
// several kinds the first in ActionKinds order wins.
func (r *Registry) Find(name string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range ActionKinds {
		if action, exists := r.actions[ActionKey(kind, name)]; exists {
			return action, nil
		}
	}
	return nil, services.NewNotFoundError("action", name)
}

// LookupModel resolves a model handle.
func (r *Registry) LookupModel(name string) (ModelFunc, error) {
	a, err := r.Resolve(ActionKindModel, name)
	if err != nil {
		return nil, err
	}
	return a.Handle.(ModelFunc), nil
}

// LookupEmbedder resolves an embedder handle.
func (r *Registry) LookupEmbedder(name string) (EmbedderFunc, error) {
	a, err := r.Resolve(ActionKindEmbedder, name)
	if err != nil {
		return nil, err
	}
	return a.Handle.(EmbedderFunc), nil
}

// LookupRetriever resolves a retriever handle.
func (r *Registry) LookupRetriever(name string) (RetrieverFunc, error) {
	a, err := r.Resolve(ActionKindRetriever, name)
	if err != nil {
		return nil, err
	}
	return a.Handle.(RetrieverFunc), nil
}

// LookupIndexer resolves an indexer handle.
func (r *Registry) LookupIndexer(name string) (IndexerFunc, error) {
	a, err := r.Resolve(ActionKindIndexer, name)
	if err != nil {
		return nil, err
	}
	return a.Handle.(IndexerFunc), nil
}

// List returns a snapshot of the registered actions of kind, sorted by key.
// An empty kind lists everything.
func (r *Registry) List(kind ActionKind) []ActionDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ActionDescriptor, 0, len(r.actions))
	for key, a := range r.actions {
		if kind != "" && a.Kind != kind {
			continue
		}
		out = append(out, ActionDescriptor{Key: key, Kind: a.Kind, Name: a.Name, Metadata: a.Metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered actions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.actions)
}

func validateAction(a *Action) error {
	if a == nil {
		return services.NewValidationError("action cannot be nil", nil)
	}
	if !a.Kind.Valid() {
		return services.NewValidationError(fmt.Sprintf("unknown action kind %q", a.Kind), nil)
	}
	if err := utils.ValidateActionName(a.Name); err != nil {
		return services.NewValidationError("invalid action name", err)
	}

	var handleOK bool
	switch a.Kind {
	case ActionKindModel:
		fn, ok := a.Handle.(ModelFunc)
		handleOK = ok && fn != nil
		if _, ok := a.Metadata.(*ModelInfo); !ok {
			return metadataError(a)
		}
	case ActionKindEmbedder:
		fn, ok := a.Handle.(EmbedderFunc)
		handleOK = ok && fn != nil
		if _, ok := a.Metadata.(*EmbedderInfo); !ok {
			return metadataError(a)
		}
	case ActionKindRetriever:
		fn, ok := a.Handle.(RetrieverFunc)
		handleOK = ok && fn != nil
		if _, ok := a.Metadata.(*StoreInfo); !ok {
			return metadataError(a)
		}
	case ActionKindIndexer:
		fn, ok := a.Handle.(IndexerFunc)
		handleOK = ok && fn != nil
		if _, ok := a.Metadata.(*StoreInfo); !ok {
			return metadataError(a)
		}
	}
	if !handleOK {
		return services.NewValidationError(fmt.Sprintf("action %s has no %s handle", a.Name, a.Kind), nil)
	}

	if err := utils.ValidateStruct(a.Metadata); err != nil {
		return services.NewValidationError(fmt.Sprintf("invalid metadata for %s", a.Name), err)
	}
	return nil
}

func metadataError(a *Action) error {
	return services.NewValidationError(
		fmt.Sprintf("action %s: metadata %T does not match kind %s", a.Name, a.Metadata, a.Kind), nil)
}

// Plugin registers a family of actions into a registry.
type Plugin interface {
	Name() string
	Initialize(r *Registry) error
}

// RegistryBuilder helps build a registry from several plugins
type RegistryBuilder struct {
	plugins []Plugin
}

// NewRegistryBuilder creates a new registry builder
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithPlugin queues a plugin for initialization
func (rb *RegistryBuilder) WithPlugin(p Plugin) *RegistryBuilder {
	if p != nil {
		rb.plugins = append(rb.plugins, p)
	}
	return rb
}

// Build initializes every plugin in order against a fresh registry.
func (rb *RegistryBuilder) Build() (*Registry, error) {
	registry := NewRegistry()
	for _, p := range rb.plugins {
		if err := p.Initialize(registry); err != nil {
			return nil, fmt.Errorf("failed to initialize plugin %s: %w", p.Name(), err)
		}
	}
	return registry, nil
}
