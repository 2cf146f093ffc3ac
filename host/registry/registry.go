// Package registry holds the name to function mapping used by the call bridge.
package registry

import (
	"context"
	stdErrors "errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/internal/validate"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	validate *validator.Validate
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		validate: validate.New(),
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithValidator replaces the signature validator. It must understand the
// valuetype rule, see validate.New.
func WithValidator(v *validator.Validate) RegistryOption {
	return func(c *registryConfig) {
		if v != nil {
			c.validate = v
		}
	}
}

// record is one registered function plus its in-flight bookkeeping.
type record struct {
	drained chan struct{}
	entry   entities.FunctionEntry
	mu      sync.Mutex
	active  int
	removed bool
}

// Registry implements ports.FunctionRegistry. Lookups read an immutable
// snapshot; writers build a new snapshot under writeMu and swap it in.
type Registry struct {
	snapshot atomic.Pointer[map[string]*record]
	config   registryConfig
	writeMu  sync.Mutex
	frozen   atomic.Bool
}

var _ ports.FunctionRegistry = (*Registry)(nil)

// NewRegistry creates an empty Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Registry{config: cfg}
	empty := make(map[string]*record)
	r.snapshot.Store(&empty)
	return r
}

func (r *Registry) load() map[string]*record {
	return *r.snapshot.Load()
}

// Register adds a function. Nothing is changed when it fails.
func (r *Registry) Register(name string, sig entities.Signature, target entities.Target) error {
	if r.frozen.Load() {
		return frozenError()
	}
	if err := r.checkDeclaration(name, sig, target); err != nil {
		return err
	}

	rec := &record{
		entry: entities.FunctionEntry{
			Name:      name,
			Signature: cloneSignature(sig),
			Target:    target,
		},
		drained: make(chan struct{}),
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	// Freeze may have raced with the checks above.
	if r.frozen.Load() {
		return frozenError()
	}
	current := r.load()
	if _, exists := current[name]; exists {
		return &errors.DuplicateNameError{Name: name}
	}
	if t, ok := target.(entities.ForeignTarget); ok {
		if owner, taken := handleOwner(current, t.Handle); taken {
			return &errors.SignatureError{
				Function: name,
				Field:    "target",
				Reason:   fmt.Sprintf("handle %d is already registered as %q", t.Handle, owner),
			}
		}
	}

	next := maps.Clone(current)
	next[name] = rec
	r.snapshot.Store(&next)
	return nil
}

func handleOwner(current map[string]*record, h entities.Handle) (string, bool) {
	for name, rec := range current {
		if t, ok := rec.entry.Target.(entities.ForeignTarget); ok && t.Handle == h {
			return name, true
		}
	}
	return "", false
}

func frozenError() error {
	return &errors.PhaseError{
		Operation: "register",
		Current:   entities.PhaseConnected,
		Required:  []entities.Phase{entities.PhaseInitialized},
	}
}

func (r *Registry) checkDeclaration(name string, sig entities.Signature, target entities.Target) error {
	if name == "" {
		return &errors.SignatureError{Function: name, Field: "name", Reason: "function name is empty"}
	}
	switch t := target.(type) {
	case nil:
		return &errors.SignatureError{Function: name, Field: "target", Reason: "target is nil"}
	case entities.LocalTarget:
		if t.Fn == nil {
			return &errors.SignatureError{Function: name, Field: "target", Reason: "local function is nil"}
		}
	}

	if err := r.config.validate.Struct(sig); err != nil {
		var verrs validator.ValidationErrors
		if stdErrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &errors.SignatureError{
				Function: name,
				Field:    validate.FieldPath(fe),
				Reason:   describeRule(fe),
			}
		}
		return &errors.SignatureError{Function: name, Err: err}
	}

	if err := uniqueNames(name, "parameters", sig.Parameters); err != nil {
		return err
	}
	return uniqueNames(name, "returns", sig.Returns)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "name is empty"
	case validate.ValueTypeTag:
		return fmt.Sprintf("unsupported type %v", fe.Value())
	}
	return fmt.Sprintf("failed %q rule", fe.Tag())
}

func uniqueNames(function, list string, params []entities.Parameter) error {
	seen := make(map[string]struct{}, len(params))
	for i, p := range params {
		if _, dup := seen[p.Name]; dup {
			return &errors.SignatureError{
				Function: function,
				Field:    fmt.Sprintf("%s[%d].name", list, i),
				Reason:   fmt.Sprintf("duplicate parameter name %q", p.Name),
			}
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Lookup returns a copy of the entry registered under name.
func (r *Registry) Lookup(name string) (entities.FunctionEntry, error) {
	rec, ok := r.load()[name]
	if !ok {
		return entities.FunctionEntry{}, &errors.NotFoundError{Name: name}
	}
	return cloneEntry(rec.entry), nil
}

// Acquire marks one invocation of name as in flight. The returned entry is
// shared and must not be modified. release is safe to call more than once.
func (r *Registry) Acquire(name string) (entities.FunctionEntry, func(), error) {
	rec, ok := r.load()[name]
	if !ok {
		return entities.FunctionEntry{}, nil, &errors.NotFoundError{Name: name}
	}

	rec.mu.Lock()
	if rec.removed {
		rec.mu.Unlock()
		return entities.FunctionEntry{}, nil, &errors.NotFoundError{Name: name}
	}
	rec.active++
	rec.mu.Unlock()

	return rec.entry, sync.OnceFunc(rec.release), nil
}

func (rec *record) release() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.active--
	if rec.removed && rec.active == 0 {
		close(rec.drained)
	}
}

// markRemoved stops new acquisitions. It must be called once per record.
func (rec *record) markRemoved() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.removed = true
	if rec.active == 0 {
		close(rec.drained)
	}
}

// InFlight returns how many invocations of name are currently running.
func (r *Registry) InFlight(name string) int {
	rec, ok := r.load()[name]
	if !ok {
		return 0
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.active
}

// Unregister removes name from lookups at once, then waits for running
// invocations to finish. If ctx ends first the entry stays removed and the
// context error is returned together with the entry.
func (r *Registry) Unregister(ctx context.Context, name string) (entities.FunctionEntry, error) {
	r.writeMu.Lock()
	current := r.load()
	rec, ok := current[name]
	if !ok {
		r.writeMu.Unlock()
		return entities.FunctionEntry{}, &errors.NotFoundError{Name: name}
	}
	next := maps.Clone(current)
	delete(next, name)
	r.snapshot.Store(&next)
	rec.markRemoved()
	r.writeMu.Unlock()

	if err := wait(ctx, rec); err != nil {
		return rec.entry, err
	}
	return rec.entry, nil
}

func wait(ctx context.Context, rec *record) error {
	select {
	case <-rec.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight calls of %q: %w", rec.entry.Name, ctx.Err())
	}
}

// Drain removes every entry and waits for all in-flight invocations.
// Entries are returned in name order even when ctx ends first.
func (r *Registry) Drain(ctx context.Context) ([]entities.FunctionEntry, error) {
	r.writeMu.Lock()
	current := r.load()
	empty := make(map[string]*record)
	r.snapshot.Store(&empty)
	for _, rec := range current {
		rec.markRemoved()
	}
	r.writeMu.Unlock()

	names := slices.Sorted(maps.Keys(current))
	entries := make([]entities.FunctionEntry, 0, len(names))
	var errs []error
	for _, name := range names {
		rec := current[name]
		entries = append(entries, rec.entry)
		if err := wait(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return entries, stdErrors.Join(errs...)
}

// Freeze rejects all further registrations. A Register that already holds
// the write lock completes first.
func (r *Registry) Freeze() {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// List returns all registered function names in sorted order.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.load()))
}

// Entries returns copies of all registered entries in name order.
func (r *Registry) Entries() []entities.FunctionEntry {
	current := r.load()
	out := make([]entities.FunctionEntry, 0, len(current))
	for _, name := range slices.Sorted(maps.Keys(current)) {
		out = append(out, cloneEntry(current[name].entry))
	}
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.load())
}

func cloneEntry(e entities.FunctionEntry) entities.FunctionEntry {
	e.Signature = cloneSignature(e.Signature)
	return e
}

func cloneSignature(sig entities.Signature) entities.Signature {
	return entities.Signature{
		Parameters: slices.Clone(sig.Parameters),
		Returns:    slices.Clone(sig.Returns),
	}
}
