package host

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	apptemplate "github.com/frontrow-dev/frontrow-sdk/application/template"
	"github.com/frontrow-dev/frontrow-sdk/application/validation"
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/infrastructure/parser"
	"github.com/frontrow-dev/frontrow-sdk/internal/validate"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	parser          ports.ManifestParser
	schema          ports.ManifestValidator
	templateEngine  ports.TemplateEngine
	logger          *slog.Logger
	vars            map[string]string
	wireConstraint  string
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlManifestParser(),
		logger:          slog.Default(),
		wireConstraint:  defaultWireConstraint(),
		strictTemplates: true,
	}
}

// defaultWireConstraint accepts any manifest speaking the same major
// version of the encoding as this package.
func defaultWireConstraint() string {
	v := semver.MustParse(wireformat.Version)
	return fmt.Sprintf("^%d.0.0", v.Major())
}

// Loader orchestrates the manifest loading pipeline: template rendering,
// parse, schema check, struct validation and wire version negotiation.
type Loader struct {
	schema     ports.ManifestValidator
	validator  *validator.Validate
	constraint *semver.Constraints
	config     loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithSchemaValidator replaces the generated manifest schema.
func WithSchemaValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.schema = v
	}
}

// WithWireConstraint sets the semver constraint a manifest's wire_version
// must satisfy, e.g. ">= 1.0.0, < 1.3.0".
func WithWireConstraint(constraint string) LoaderOption {
	return func(c *loaderConfig) {
		c.wireConstraint = constraint
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithTemplateVars sets the values manifests reference as {{.vars.key}}.
func WithTemplateVars(vars map[string]string) LoaderOption {
	return func(c *loaderConfig) {
		c.vars = vars
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithLoaderLogger sets the logger for loaded manifests.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}

	constraint, err := semver.NewConstraint(cfg.wireConstraint)
	if err != nil {
		return nil, &errors.ConfigError{Field: "wire_constraint", Err: err}
	}

	l := &Loader{
		schema:     cfg.schema,
		validator:  validate.New(),
		constraint: constraint,
		config:     cfg,
	}
	if l.schema == nil {
		v, err := validation.NewManifestValidator()
		if err != nil {
			return nil, err
		}
		l.schema = v
	}
	return l, nil
}

// LoadManifest parses and validates a machine manifest.
func (l *Loader) LoadManifest(raw []byte) (*entities.MachineManifest, error) {
	raw, err := l.config.templateEngine.Render(raw, l.config.vars)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "render", Err: err}
	}

	doc, err := l.config.parser.ParseDocument(raw)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "parse", Err: err}
	}

	res, err := l.schema.Validate(doc)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "schema", Err: err}
	}
	if !res.Valid {
		msg := "manifest validation failed:"
		for _, e := range res.Errors {
			msg += fmt.Sprintf("\n- %s: %s", e.Field, e.Message)
		}
		return nil, &errors.ManifestError{Stage: "schema", Err: stdErrors.New(msg)}
	}

	manifest, err := l.config.parser.Parse(raw)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "parse", Err: err}
	}

	if err := l.validateStruct(manifest); err != nil {
		return nil, err
	}

	version, err := semver.NewVersion(manifest.WireVersion)
	if err != nil {
		return nil, &errors.ManifestError{Stage: "version", Path: "wire_version", Err: err}
	}
	if ok, reasons := l.constraint.Validate(version); !ok {
		return nil, &errors.ManifestError{Stage: "version", Path: "wire_version", Err: stdErrors.Join(reasons...)}
	}

	l.config.logger.Debug("manifest loaded",
		slog.String("machine", manifest.Name),
		slog.String("wire_version", version.String()),
		slog.Int("functions", len(manifest.Functions)))
	return manifest, nil
}

func (l *Loader) validateStruct(m *entities.MachineManifest) error {
	err := l.validator.Struct(m)
	if err == nil {
		err = uniqueFunctionNames(m)
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if stdErrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		paths := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			paths[i] = validate.FieldPath(fe)
		}
		return &errors.ManifestError{
			Stage: "validate",
			Path:  paths[0],
			Err:   fmt.Errorf("invalid fields: %s", strings.Join(paths, ", ")),
		}
	}
	return &errors.ManifestError{Stage: "validate", Err: err}
}

func uniqueFunctionNames(m *entities.MachineManifest) error {
	seen := make(map[string]struct{}, len(m.Functions))
	for _, fn := range m.Functions {
		if _, ok := seen[fn.Name]; ok {
			return &errors.DuplicateNameError{Name: fn.Name}
		}
		seen[fn.Name] = struct{}{}
	}
	return nil
}

// LoadFile reads a manifest and the module it points to. A relative module
// path is resolved against the manifest's directory.
func (l *Loader) LoadFile(path string) (*entities.MachineManifest, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &errors.ManifestError{Stage: "parse", Path: path, Err: err}
	}

	manifest, err := l.LoadManifest(raw)
	if err != nil {
		return nil, nil, err
	}

	module := manifest.Module
	if !filepath.IsAbs(module) {
		module = filepath.Join(filepath.Dir(path), module)
	}
	wasm, err := os.ReadFile(module)
	if err != nil {
		return nil, nil, &errors.ManifestError{Stage: "bind", Path: module, Err: err}
	}
	return manifest, wasm, nil
}
