package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"GoToolCall/pkg/client"
	"GoToolCall/pkg/config"
	"GoToolCall/pkg/conversation"
	"GoToolCall/pkg/logging"
	"GoToolCall/pkg/tools"
)

const (
	defaultDemoPrompt   = "Can you tell me the weather in London and also calculate the square root of 144?"
	defaultStreamPrompt = "What is 12 * 12 + 7?"
)

// app holds what the persistent pre-run resolved for the subcommands
type app struct {
	configPath string
	envPath    string
	baseURL    string
	apiKey     string
	model      string
	debug      bool

	cfg    config.Config
	logger *slog.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	loaded, envErr := config.LoadEnvFile(a.envPath)
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = a.apiKey
	}
	if flags.Changed("model") {
		cfg.Model = a.model
	}
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	a.cfg = cfg
	a.logger = logging.New(os.Stderr, cfg.Debug).With("component", "cli")
	if envErr != nil {
		a.logger.Warn("cli.env_load_failed", "error", envErr.Error())
	}
	if loaded {
		a.logger.Debug("cli.env_loaded", "path", a.envPath)
	}
	return nil
}

func (a *app) newClient() (*client.Client, error) {
	return client.NewClient(a.cfg, client.WithLogger(a.logger))
}

func (a *app) runConversation(ctx context.Context, out io.Writer, title, prompt string, streaming bool) error {
	c, err := a.newClient()
	if err != nil {
		return err
	}
	reporter := newConsoleReporter(out)
	reporter.banner(title)
	fmt.Fprintf(out, "Server URL: %s\n", a.cfg.BaseURL)
	fmt.Fprintf(out, "You: %s\n\n", prompt)

	executor := tools.NewExecutor(a.logger)
	driver := conversation.New(c, executor,
		conversation.WithReporter(reporter),
		conversation.WithLogger(a.logger),
	)
	result, err := driver.Run(ctx, prompt, streaming)
	reporter.endLine()
	if err != nil {
		return err
	}
	if result.Rounds > 1 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Final answer:"))
		fmt.Fprintln(out, result.Final)
	}
	reporter.banner("Demo completed")
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gotoolcall",
		Short:         "Tool-calling demo client for OpenAI-compatible chat completion servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a TOML config file")
	pf.StringVar(&a.envPath, "env-file", ".env", "Path to a .env file")
	pf.StringVar(&a.baseURL, "base-url", "", "Chat completions base URL (e.g. http://localhost:8000/v1)")
	pf.StringVar(&a.apiKey, "api-key", "", "API key sent as a bearer token")
	pf.StringVar(&a.model, "model", "", "Model name")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr")

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Save the server URL and API key to a .env file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Enter the server base URL [%s]: ", config.DefaultBaseURL)
			baseURL, _ := reader.ReadString('\n')
			baseURL = strings.TrimSpace(baseURL)
			if baseURL == "" {
				baseURL = config.DefaultBaseURL
			}

			fmt.Fprint(out, "Enter your API key: ")
			apiKey, _ := reader.ReadString('\n')
			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				apiKey = config.DefaultAPIKey
			}

			values := map[string]string{
				config.EnvBaseURL: baseURL,
				config.EnvAPIKey:  apiKey,
			}
			if err := config.SaveEnvFile(a.envPath, values); err != nil {
				return err
			}
			fmt.Fprintf(out, "Settings saved to %s successfully!\n", a.envPath)
			return nil
		},
	}

	var demoPrompt string
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the non-streaming tool calling demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConversation(cmd.Context(), cmd.OutOrStdout(), "NON-STREAMING TOOL CALLING DEMO", demoPrompt, false)
		},
	}
	demoCmd.Flags().StringVar(&demoPrompt, "prompt", defaultDemoPrompt, "User message to send")

	var streamPrompt string
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Run the streaming tool calling demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConversation(cmd.Context(), cmd.OutOrStdout(), "STREAMING TOOL CALLING DEMO", streamPrompt, true)
		},
	}
	streamCmd.Flags().StringVar(&streamPrompt, "prompt", defaultStreamPrompt, "User message to send")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the inference server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return fmt.Errorf("health check failed for %s: %w", c.HealthURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server at %s is healthy\n", c.HealthURL())
			return nil
		},
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions sent to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := json.MarshalIndent(tools.Catalog(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode tools: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	execCmd := &cobra.Command{
		Use:   "exec <tool> [json-arguments]",
		Short: "Run a tool locally, as the model would request it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := "{}"
			if len(args) == 2 {
				raw = args[1]
			}
			toolArgs, err := tools.DecodeArguments(raw)
			if err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}
			executor := tools.NewExecutor(a.logger)
			fmt.Fprintln(cmd.OutOrStdout(), executor.Execute(args[0], toolArgs))
			return nil
		},
	}

	rootCmd.AddCommand(setupCmd, demoCmd, streamCmd, healthCmd, toolsCmd, execCmd)
	return rootCmd
}

func main() {
	rootCmd := newRootCmd(&app{})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
