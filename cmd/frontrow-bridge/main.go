// Command frontrow-bridge hosts a machine and drives its call bridge from
// the command line. The machine always serves the demo functions; a
// manifest adds the functions exported by a WebAssembly module.
//
//	frontrow-bridge [flags] describe
//	frontrow-bridge [flags] list
//	frontrow-bridge [flags] schema [manifest|description]
//	frontrow-bridge [flags] invoke FUNCTION [ARG...]
//
// Defaults come from FRONTROW_* environment variables.
package main

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	sdk "github.com/frontrow-dev/frontrow-sdk"
	"github.com/frontrow-dev/frontrow-sdk/application/schema"
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/host"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/internal/config"
	sdklog "github.com/frontrow-dev/frontrow-sdk/log"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// ExitError carries the exit code for usage errors.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if stdErrors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	cfg     *config.Config
	command string
	args    []string
}

func parse(args []string, stderr io.Writer) (*options, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("frontrow-bridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `Usage:
  frontrow-bridge [flags] describe
  frontrow-bridge [flags] list
  frontrow-bridge [flags] schema [manifest|description]
  frontrow-bridge [flags] invoke FUNCTION [ARG...]

Flags:
`)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.MachineName, "name", cfg.MachineName, "Machine name reported at connect.")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "Path to a machine manifest (YAML or JSON).")
	fs.StringVar(&cfg.DescriptionFormat, "format", cfg.DescriptionFormat, "Description encoding: json or cbor.")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json.")
	fs.BoolVar(&cfg.LogCalls, "log-calls", cfg.LogCalls, "Log every local invocation.")

	if err := fs.Parse(args); err != nil {
		if stdErrors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, &ExitError{Code: 2, Message: "missing command"}
	}
	return &options{cfg: cfg, command: fs.Arg(0), args: fs.Args()[1:]}, nil
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	opts, err := parse(args, stderr)
	if err != nil {
		if stdErrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.command == "schema" {
		return printSchema(stdout, opts.args)
	}

	logger, err := newLogger(stderr, opts.cfg)
	if err != nil {
		return err
	}

	m, err := newMachine(ctx, stdout, logger, opts.cfg)
	if err != nil {
		return err
	}
	defer m.close(ctx)

	switch opts.command {
	case "describe":
		if strings.EqualFold(opts.cfg.DescriptionFormat, string(wireformat.FormatCBOR)) {
			_, err = stdout.Write(m.description)
			return err
		}
		pretty, err := describeJSON(m.description)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(pretty))
		return err
	case "list":
		for _, name := range m.client.ListFunctions() {
			entry, err := m.client.Bridge().Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s %s\n", name, entry.Signature)
		}
		return nil
	case "invoke":
		return m.invoke(ctx, stdout, opts.args)
	}
	return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", opts.command)}
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := sdklog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	format := sdklog.Format(strings.ToLower(cfg.LogFormat))
	if format != sdklog.FormatText && format != sdklog.FormatJSON {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("unknown log format %q", cfg.LogFormat)}
	}
	return sdklog.NewLogger(w, sdklog.WithLevel(level), sdklog.WithFormat(format)), nil
}

func printSchema(w io.Writer, args []string) error {
	name := "manifest"
	if len(args) > 0 {
		name = args[0]
	}
	doc, err := schema.ByName(name)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	_, err = fmt.Fprintln(w, string(doc))
	return err
}

// machine is a connected client, plus the executor hosting its manifest
// module when one is configured.
type machine struct {
	client      *sdk.Client
	executor    *host.Executor
	wasm        *host.Machine
	description []byte
}

func newMachine(ctx context.Context, out io.Writer, logger *slog.Logger, cfg *config.Config) (*machine, error) {
	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		return nil, err
	}
	format, err := wireformat.ParseDescriptionFormat(cfg.DescriptionFormat)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	m := &machine{}
	clientOpts := []sdk.ClientOption{
		sdk.WithLogger(logger),
		sdk.WithConfig(sdkCfg),
		sdk.WithDescriptionFormat(format),
	}

	if cfg.Manifest != "" {
		if err := m.loadManifest(ctx, out, logger, cfg, sdkCfg); err != nil {
			m.close(ctx)
			return nil, err
		}
		clientOpts = append(clientOpts, sdk.WithNativeInvoker(m.executor.Invoker()))
	}

	m.client, err = sdk.InitializeLibrary(clientOpts...)
	if err != nil {
		m.close(ctx)
		return nil, err
	}
	if err := m.register(cfg.MachineName, out, sdkCfg.MaxPayloadSize); err != nil {
		m.close(ctx)
		return nil, err
	}
	m.description, err = m.client.ConnectToServer()
	if err != nil {
		m.close(ctx)
		return nil, err
	}
	return m, nil
}

func (m *machine) loadManifest(ctx context.Context, out io.Writer, logger *slog.Logger, cfg *config.Config, sdkCfg entities.Config) error {
	loader, err := host.NewLoader(
		host.WithLoaderLogger(logger),
		host.WithTemplateVars(cfg.ManifestVars),
	)
	if err != nil {
		return err
	}
	manifest, wasm, err := loader.LoadFile(cfg.Manifest)
	if err != nil {
		return err
	}

	callbacks, err := hostfuncs.NewRegistry(hostfuncs.WithBundle(
		hostfuncs.DemoBundle(out, hostfuncs.WithSequenceLimit(sdkCfg.MaxPayloadSize))))
	if err != nil {
		return err
	}
	m.executor, err = host.NewExecutor(ctx,
		host.WithHostFunctions(callbacks),
		host.WithExecutorLogger(logger),
		host.WithMemoryLimitPages(cfg.MemoryLimitPages),
		host.WithMaxPayloadSize(sdkCfg.MaxPayloadSize),
	)
	if err != nil {
		return err
	}
	m.wasm, err = m.executor.LoadMachine(ctx, manifest, wasm)
	return err
}

func (m *machine) register(name string, out io.Writer, maxPayload int) error {
	if err := m.client.SetName(name); err != nil {
		return err
	}
	if err := m.client.RegisterBundle(hostfuncs.DemoBundle(out, hostfuncs.WithSequenceLimit(maxPayload))); err != nil {
		return err
	}
	if m.wasm != nil {
		return m.client.Bridge().RegisterMachine(m.wasm)
	}
	return nil
}

func (m *machine) invoke(ctx context.Context, w io.Writer, args []string) error {
	if len(args) == 0 {
		return &ExitError{Code: 2, Message: "invoke needs a function name"}
	}
	entry, err := m.client.Bridge().Lookup(args[0])
	if err != nil {
		return err
	}

	params := entry.Signature.Parameters
	if len(args)-1 != len(params) {
		return &ExitError{Code: 2, Message: fmt.Sprintf("%s takes %d arguments %s, got %d",
			entry.Name, len(params), entry.Signature, len(args)-1)}
	}
	values := make([]entities.Value, len(params))
	for i, p := range params {
		v, err := entities.ParseValue(p.Type, args[i+1])
		if err != nil {
			return &ExitError{Code: 2, Message: fmt.Sprintf("argument %s: %v", p.Name, err)}
		}
		values[i] = v
	}

	call := sdk.NewCall(entry.Name, values...)
	m.client.Enqueue(call)
	results, err := m.client.LibraryUpdate(ctx)
	if err != nil {
		return err
	}
	res := results[0]
	if res.Error != nil {
		return res.Error
	}

	for i, r := range entry.Signature.Returns {
		fmt.Fprintf(w, "%s %s = %s\n", r.Name, r.Type, res.Results[i])
	}
	return nil
}

// close shuts the client down before the executor so foreign handles are
// released while their module is still alive.
func (m *machine) close(ctx context.Context) {
	if m.client != nil {
		_ = m.client.ShutdownLibrary(ctx)
	}
	if m.wasm != nil {
		_ = m.wasm.Close(ctx)
	}
	if m.executor != nil {
		_ = m.executor.Close(ctx)
	}
}

// describeJSON re-indents a JSON description for humans.
func describeJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}
