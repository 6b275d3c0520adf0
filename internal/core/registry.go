package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]FlowDefinition)
	registryMu sync.RWMutex
)

// RegisterFlow adds an import flow to the registry.
// Panics if a flow with the same key is already registered.
func RegisterFlow(def FlowDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("flow already registered: %s", def.Info.Key))
	}
	if def.Prepare == nil || def.Commit == nil {
		panic(fmt.Sprintf("flow %s: Prepare and Commit are required", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// GetFlow returns a flow definition by key.
func GetFlow(key string) (FlowDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Flows returns all registered flows sorted by key.
func Flows() []FlowDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FlowDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}
