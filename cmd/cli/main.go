// Command sorryboard is the submit and moderation CLI for the apology board.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/sorryboard/internal/config"
	"github.com/and161185/sorryboard/internal/repository/rest"
	"github.com/and161185/sorryboard/internal/service"
	"github.com/and161185/sorryboard/internal/tablestore"
	"github.com/and161185/sorryboard/internal/validation"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	envFile    string
	verbose    bool
	timeout    time.Duration
}

// logger writes warnings to the command's stderr, everything when verbose.
func (g *globals) logger(cmd *cobra.Command) *zap.Logger {
	level := zapcore.WarnLevel
	if g.verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(cmd.ErrOrStderr()), level)
	return zap.New(core)
}

// moderationFactory builds the privileged service once flags are parsed.
type moderationFactory func(g *globals) (service.ModerationService, error)

// configArgs forwards the persistent flags to the config loader.
func (g *globals) configArgs() []string {
	args := []string{"-env-file", g.envFile}
	if g.configPath != "" {
		args = append(args, "-config", g.configPath)
	}
	return args
}

func newModeration(g *globals) (service.ModerationService, error) {
	cfg, err := config.Load(g.configArgs())
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if g.verbose {
		log, _ = zap.NewDevelopment()
	}
	store, err := tablestore.New(tablestore.Options{
		BaseURL:    cfg.Store.URL,
		AnonKey:    cfg.Store.AnonKey,
		Exec:       tablestore.TrustedServer(cfg.Store.ServiceKey),
		HTTPClient: &http.Client{Timeout: cfg.Store.Timeout},
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	return service.NewModerationService(rest.NewMessageRepo(store, log), validation.New(rules)), nil
}

func newRootCmd(mod moderationFactory) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "sorryboard",
		Short:         "Submit and moderate apologies",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&g.envFile, "env-file", ".env", ".env file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	pf.DurationVar(&g.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(moderationCommands(g, mod)...)
	root.AddCommand(newSubmitCmd(g))
	return root
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func main() {
	if err := newRootCmd(newModeration).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
