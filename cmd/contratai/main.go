// Package main provides the contratai binary entry point: the contract
// analysis worker plus producer-side utilities.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contratai/contratai/config"
	"github.com/contratai/contratai/llm"
	"github.com/contratai/contratai/processor/analyzer"
	"github.com/contratai/contratai/queue"
	"github.com/contratai/contratai/storage"
)

const (
	Version = "0.1.0"
	appName = "contratai"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "AI-assisted contract analysis pipeline",
		Long:         "contratai runs the asynchronous contract analysis worker and producer-side utilities.",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(submitCmd())
	root.AddCommand(useraddCmd())
	root.AddCommand(versionCmd())

	return root
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	if err := loader.EnsureUserConfig(); err != nil {
		logger.Warn("Could not create user config", "error", err)
	}
	return loader.Load()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the contract analysis worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			slog.SetDefault(logger)

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := NewApp(cfg, logger)
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				app.Shutdown(shutdownCtx)
			}()

			inference := llm.NewClient(cfg.Ollama, llm.WithLogger(logger))
			prompts := llm.NewPromptBuilder(cfg.Ollama.MaxPromptChars, logger)
			metrics := analyzer.NewMetrics(app.Registry())

			worker, err := analyzer.NewComponent(
				analyzer.DefaultConfig(), app.JetStream(), app.Store(), inference, prompts, metrics, logger)
			if err != nil {
				return err
			}

			if err := worker.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("Shutting down")
			worker.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func submitCmd() *cobra.Command {
	var (
		userID  int64
		file    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Enqueue a contract for asynchronous analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			text, err := readContractText(file)
			if err != nil {
				return err
			}
			// The request boundary rejects blank contracts; the gateway
			// itself only requires a requester.
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("contract text must not be blank")
			}

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			app := NewApp(cfg, logger)
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			publisher := queue.NewPublisher(app.JetStream(), logger)
			if err := publisher.SubmitForAnalysis(ctx, text, userID); err != nil {
				return err
			}

			fmt.Printf("Contract submitted for analysis (requester %d, %d bytes)\n", userID, len(text))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "requesting user id (required)")
	cmd.Flags().StringVar(&file, "file", "", "contract file to submit (default: stdin)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	return storage.NewStore(cfg.Database.Path)
}

func readContractText(file string) (string, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read contract from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read contract file: %w", err)
	}
	return string(data), nil
}

func useraddCmd() *cobra.Command {
	var (
		name    string
		email   string
		role    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user able to request contract analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.CreateUser(cmd.Context(), name, email, role)
			if err != nil {
				return err
			}

			fmt.Printf("User created: id=%d name=%s email=%s role=%s\n", user.ID, user.Name, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "user name (required)")
	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&role, "role", "", "user role: CLIENT, LAWYER or ADMIN")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, Version)
		},
	}
}
