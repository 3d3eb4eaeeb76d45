package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdialer/commhub/internal/bootstrap"
	callerdomain "github.com/jdialer/commhub/internal/callerid_service/domain"
	integrationdomain "github.com/jdialer/commhub/internal/integration_service/domain"
	"github.com/jdialer/commhub/internal/platform/config"
	"github.com/jdialer/commhub/internal/platform/database"
	"github.com/jdialer/commhub/internal/platform/logger"
	"github.com/jdialer/commhub/internal/public_api_service/middleware"
)

const serviceName = "commhubctl"

type callerBackend interface {
	Evaluate(ctx context.Context, rawNumber string) (callerdomain.CallerIdDecision, error)
	Block(ctx context.Context, rawNumber string, blocked bool) error
}

type riskBackend interface {
	EvaluateRisk(ctx context.Context, rawNumber string) (callerdomain.CallerRiskProfile, error)
}

// backend is what the data commands operate on.
type backend struct {
	callers callerBackend
	risk    riskBackend
	links   integrationdomain.ConversationLinkRepository
	close   func()
}

// env carries configuration and the backend factory. Tests replace open.
type env struct {
	loadConfig func() (*config.Config, error)
	open       func(ctx context.Context, cfg *config.Config) (*backend, error)
	now        func() time.Time
}

func defaultEnv() *env {
	return &env{
		loadConfig: func() (*config.Config, error) { return config.Load(serviceName) },
		open:       openBackend,
		now:        time.Now,
	}
}

// openBackend connects to PostgreSQL only; no broker is dialed. Logs go to
// stderr so stdout carries command output.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	pool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s := bootstrap.New(cfg, pool, nil, logger.NewWithWriter(os.Stderr, cfg.LogLevel))
	return &backend{
		callers: s.CallerResolver,
		risk:    s.RiskEvaluator,
		links:   s.Links,
		close:   pool.Close,
	}, nil
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "commhubctl",
		Short:         "Operate the commhub caller-ID store, conversation links and API tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCallerCmd(e), newLinkCmd(e), newTokenCmd(e))
	return root
}

// withBackend loads config, opens the backend and closes it after fn.
func withBackend(cmd *cobra.Command, e *env, fn func(ctx context.Context, b *backend) error) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := e.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCallerCmd(e *env) *cobra.Command {
	callerCmd := &cobra.Command{
		Use:   "caller",
		Short: "Inspect and block callers",
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate [number]",
		Short: "Resolve the caller-ID decision for a number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, e, func(ctx context.Context, b *backend) error {
				decision, err := b.callers.Evaluate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), decision)
			})
		},
	}

	var unblock bool
	blockCmd := &cobra.Command{
		Use:   "block [number]",
		Short: "Mark a number as blocked by the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, e, func(ctx context.Context, b *backend) error {
				if err := b.callers.Block(ctx, args[0], !unblock); err != nil {
					return err
				}
				state := "blocked"
				if unblock {
					state = "unblocked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], state)
				return nil
			})
		},
	}
	blockCmd.Flags().BoolVar(&unblock, "unblock", false, "clear the user block instead of setting it")

	riskCmd := &cobra.Command{
		Use:   "risk [number]",
		Short: "Grade a caller by combining caller-ID and spam signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, e, func(ctx context.Context, b *backend) error {
				profile, err := b.risk.EvaluateRisk(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}

	callerCmd.AddCommand(evaluateCmd, blockCmd, riskCmd)
	return callerCmd
}

func newLinkCmd(e *env) *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Manage contact conversation links",
	}

	var (
		contactID int64
		platform  string
		handle    string
		disabled  bool
		blocked   bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the link of a contact on a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if contactID <= 0 {
				return fmt.Errorf("--contact must be positive")
			}
			if strings.TrimSpace(handle) == "" {
				return fmt.Errorf("--handle is required")
			}
			link := integrationdomain.ConversationLink{
				ContactID:  contactID,
				Platform:   strings.ToLower(strings.TrimSpace(platform)),
				Handle:     strings.TrimSpace(handle),
				ResolvedBy: "manual",
				IsEnabled:  !disabled,
				IsBlocked:  blocked,
			}
			return withBackend(cmd, e, func(ctx context.Context, b *backend) error {
				if err := b.links.Upsert(ctx, link); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "linked contact %d on %s\n", link.ContactID, link.Platform)
				return nil
			})
		},
	}
	setCmd.Flags().Int64Var(&contactID, "contact", 0, "contact id")
	setCmd.Flags().StringVar(&platform, "platform", "", "platform id (whatsapp, telegram, signal, ...)")
	setCmd.Flags().StringVar(&handle, "handle", "", "platform handle, usually the phone number")
	setCmd.Flags().BoolVar(&disabled, "disabled", false, "store the link disabled")
	setCmd.Flags().BoolVar(&blocked, "blocked", false, "store the link blocked")
	_ = setCmd.MarkFlagRequired("contact")
	_ = setCmd.MarkFlagRequired("platform")
	_ = setCmd.MarkFlagRequired("handle")

	linkCmd.AddCommand(setCmd)
	return linkCmd
}

func newTokenCmd(e *env) *cobra.Command {
	var (
		subject     string
		ttl         time.Duration
		permissions []string
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, subject, permissions, ttl, e.now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().StringSliceVar(&permissions, "permission", nil,
		fmt.Sprintf("granted permission, repeatable (%s, %s)", middleware.PermissionBlockCallers, middleware.PermissionManageIntegrations))
	_ = tokenCmd.MarkFlagRequired("subject")
	return tokenCmd
}
