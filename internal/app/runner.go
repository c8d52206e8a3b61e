package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ggonzalez94/goldilocks-keeper/internal/config"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution"
	"github.com/ggonzalez94/goldilocks-keeper/internal/logx"
	"github.com/ggonzalez94/goldilocks-keeper/internal/model"
	"github.com/ggonzalez94/goldilocks-keeper/internal/out"
	"github.com/ggonzalez94/goldilocks-keeper/internal/schema"
	"github.com/ggonzalez94/goldilocks-keeper/internal/version"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// DialFunc connects to a chain node. The returned func releases the
// connection.
type DialFunc func(ctx context.Context, rawURL string) (execution.Backend, func(), error)

func dialEthclient(ctx context.Context, rawURL string) (execution.Backend, func(), error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	dial   DialFunc
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
		dial:   dialEthclient,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	logger      zerolog.Logger
	root        *cobra.Command
	lastCommand string
	account     string
	chainID     int64
}

// Run executes the CLI and returns the process exit code.
func (r *Runner) Run(args []string) int {
	return r.RunContext(context.Background(), args)
}

func (r *Runner) RunContext(ctx context.Context, args []string) int {
	state := &runtimeState{runner: r, logger: zerolog.Nop()}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.ExecuteContext(ctx)
	err = normalizeRunError(err)
	if err == nil {
		return 0
	}

	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Goldilocks borrow, stir and stake keeper",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "schema":
				return nil
			}
			s.lastCommand = trimRootPath(cmd.CommandPath())

			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeConfig, "load configuration", err)
			}
			if err := applyCycleFlags(cmd.Flags(), &settings); err != nil {
				return err
			}
			s.settings = settings

			logger, err := logx.New(settings.LogLevel, settings.LogFormat, s.runner.stderr)
			if err != nil {
				return err
			}
			s.logger = logger.With().Str("command", s.lastCommand).Logger()
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeConfig, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text (default)")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&s.flags.LogFormat, "log-format", "", "Log format (console|json)")
	cmd.PersistentFlags().StringVar(&s.flags.PrivateKey, "private-key", "", "Hex private key (overrides PRIVATE_KEY and key files)")
	cmd.PersistentFlags().StringVar(&s.flags.KeySource, "key-source", "", "Key source (auto|env|file|keystore)")

	cmd.AddCommand(s.newRunCommand())
	cmd.AddCommand(s.newCycleCommand())
	cmd.AddCommand(s.newPlanCommand())
	cmd.AddCommand(s.newStatusCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.lastCommand = "schema"
			if s.flags.Plain {
				s.settings.OutputMode = "plain"
			} else {
				s.settings.OutputMode = "json"
			}
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeConfig, "build schema", err)
			}
			return s.emitSuccess(data, nil)
		},
	}
}

func (s *runtimeState) emitSuccess(data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Warnings: warnings,
		Meta:     s.meta(s.lastCommand),
	}
	return out.Render(s.runner.stdout, env, s.settings.OutputMode)
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}

	mode := s.settings.OutputMode
	if mode == "" {
		mode = "json"
		if s.flags.Plain {
			mode = "plain"
		}
	}
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    clierr.ExitCode(err),
			Type:    clierr.TypeName(err),
			Message: message,
		},
		Meta: s.meta(commandPath),
	}
	_ = out.Render(s.runner.stderr, env, mode)
}

func (s *runtimeState) meta(command string) model.EnvelopeMeta {
	return model.EnvelopeMeta{
		RequestID: uuid.NewString(),
		Timestamp: s.runner.now().UTC(),
		Command:   command,
		Account:   s.account,
		ChainID:   s.chainID,
	}
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeConfig, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
