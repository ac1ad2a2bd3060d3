package descriptor

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds the operation descriptors of a deployment. It is written
// during setup and read-only afterwards; the mutex only guards the setup
// phase so tests can build registries concurrently.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{ops: map[string]*Descriptor{}}
}

// Register adds a descriptor; duplicate keys are rejected.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[d.Key]; ok {
		return fmt.Errorf("operation %s already registered", d.Key)
	}
	r.ops[d.Key] = d
	return nil
}

// Get returns the descriptor for key, or nil when unknown.
func (r *Registry) Get(key string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ops[key]
}

// Keys returns the registered operation keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.ops))
	for k := range r.ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OperationSpec is the YAML shape of one declared operation.
type OperationSpec struct {
	Key     string `yaml:"key"`
	Service string `yaml:"service"`
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Params  []struct {
		Name     string `yaml:"name"`
		In       string `yaml:"in"` // path|query|header|body
		Required bool   `yaml:"required"`
	} `yaml:"params"`
}

// FromSpec builds a descriptor out of its declarative form.
func FromSpec(spec OperationSpec) (*Descriptor, error) {
	bindings := make([]Binding, 0, len(spec.Params))
	for _, p := range spec.Params {
		bindings = append(bindings, Binding{Role: Role(p.In), Name: p.Name, Required: p.Required})
	}
	return New(spec.Key, spec.Service, spec.Method, spec.Path, bindings)
}

// LoadSpecs registers every operation of specs into r.
func (r *Registry) LoadSpecs(specs []OperationSpec) error {
	for _, s := range specs {
		d, err := FromSpec(s)
		if err != nil {
			return err
		}
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML file of the form `operations: [...]` and registers
// its contents.
func (r *Registry) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read operations file: %w", err)
	}
	var doc struct {
		Operations []OperationSpec `yaml:"operations"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse operations file: %w", err)
	}
	return r.LoadSpecs(doc.Operations)
}
