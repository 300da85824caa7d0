// Package registry keeps the action kinds known to the playbook engine.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrActionNotRegistered is returned when no factory exists for an action kind.
	ErrActionNotRegistered = errors.New("action type not registered")
	// ErrInvalidActionConfig is returned when an action configuration does not satisfy its schema.
	ErrInvalidActionConfig = errors.New("invalid action configuration")
)

type Registry struct {
	logger          *slog.Logger
	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

// LoadActionPlugins opens every "<pluginsPath>/actions/**/*.so" and returns the exported Action factories.
func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
}

func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.factory(actionType)
	if !ok {
		return nil, fmt.Errorf("action type '%s': %w", actionType, ErrActionNotRegistered)
	}

	if config == nil {
		config = map[string]any{}
	}

	return factory.Create(config)
}

// HasAction reports whether a factory is registered for actionType.
func (r *Registry) HasAction(actionType string) bool {
	_, ok := r.factory(actionType)

	return ok
}

// ActionTypes returns the registered action kinds in lexical order.
func (r *Registry) ActionTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	slices.Sort(types)

	return types
}

// ValidateActionConfig checks config against the JSON schema published by the action factory.
func (r *Registry) ValidateActionConfig(actionType string, config map[string]any) error {
	factory, ok := r.factory(actionType)
	if !ok {
		return fmt.Errorf("action type '%s': %w", actionType, ErrActionNotRegistered)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate %s configuration: %w", actionType, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return fmt.Errorf("%w for %s: %s", ErrInvalidActionConfig, actionType, strings.Join(details, "; "))
	}

	return nil
}

// HealthCheck reports whether any action kind is available.
func (r *Registry) HealthCheck() (string, bool) {
	types := r.ActionTypes()
	if len(types) == 0 {
		return "No action types registered", false
	}

	return fmt.Sprintf("%d action types registered", len(types)), true
}

func (r *Registry) factory(actionType string) (protocol.ActionFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.actionFactories[actionType]

	return factory, ok
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	if _, err := os.Stat(rootPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s does not export %s: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			// exported variables are looked up as pointers
			ptr, isPtr := v.(*T)
			if !isPtr || ptr == nil {
				return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded action plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
