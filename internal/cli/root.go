// Package cli implements mediactl, the client for the media platform.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mediahub/internal/content"
	"mediahub/internal/kv"
	"mediahub/internal/mediaclient"
	"mediahub/internal/reconcile"
	"mediahub/internal/session"
	"mediahub/internal/util"
	"mediahub/pkg/domain"
)

type globalFlags struct {
	configPath string
	apiURL     string
	dataDir    string
	storage    string
	logLevel   string
	jsonOut    bool
}

// env holds the opened dependencies shared by every command.
type env struct {
	cfg     Config
	out     io.Writer
	errOut  io.Writer
	jsonOut bool
	logger  *slog.Logger
	storage kv.Storage
	content *content.Store
	session *session.Store
	client  *mediaclient.Client
	media   *reconcile.Service
}

// Execute runs mediactl with args and returns the command error.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var e *env
	root := newRootCommand(stdout, stderr, &e)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if e != nil {
		if cerr := e.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func newRootCommand(stdout, stderr io.Writer, slot **env) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Browse and manage the media catalogue, online or offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if *slot != nil {
				return nil
			}
			cfg, err := LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, flags, &cfg)
			e, err := openEnv(cfg, stdout, stderr)
			if err != nil {
				return err
			}
			e.jsonOut = flags.jsonOut
			*slot = e
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ./mediactl.yaml)")
	pf.StringVar(&flags.apiURL, "api", "", "media API base URL")
	pf.StringVar(&flags.dataDir, "data-dir", "", "local data directory")
	pf.StringVar(&flags.storage, "storage", "", "local storage driver: dir, badger, redis, memory")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.jsonOut, "json", false, "print JSON instead of tables")

	get := func() *env { return *slot }
	root.AddCommand(
		newMediaCommand(get),
		newSyncCommand(get),
		newAuthCommand(get),
		newUsersCommand(get),
		newCommentsCommand(get),
		newNotificationsCommand(get),
		newTalentCommand(get),
		newSettingsCommand(get),
		newAgeGateCommand(get),
	)
	return root
}

func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *Config) {
	pf := cmd.Flags()
	if pf.Changed("api") {
		cfg.APIURL = flags.apiURL
	}
	if pf.Changed("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if pf.Changed("storage") {
		cfg.Storage = flags.storage
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
}

func openEnv(cfg Config, stdout, stderr io.Writer) (*env, error) {
	logger := util.InitLoggerTo(stderr, cfg.LogLevel)
	storage, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	store := content.Open(storage, content.Options{Logger: logger, StrictLogin: cfg.StrictLogin})
	sessions, err := session.New(storage, session.Config{
		Secret: []byte(cfg.SessionSecret),
		Signer: session.SignerOptions{TTL: mustDuration(cfg.SessionTTL, 30*24*time.Hour)},
		Users:  store,
		Logger: logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client := mediaclient.NewClient(cfg.APIURL)
	media := reconcile.New(client, store, reconcile.Config{
		Logger:           logger,
		Storage:          storage,
		FailureThreshold: cfg.BreakerThreshold,
		OpenTimeout:      mustDuration(cfg.BreakerTimeout, 30*time.Second),
	})
	return &env{
		cfg:     cfg,
		out:     stdout,
		errOut:  stderr,
		logger:  logger,
		storage: storage,
		content: store,
		session: sessions,
		client:  client,
		media:   media,
	}, nil
}

func openStorage(cfg Config) (kv.Storage, error) {
	switch cfg.Storage {
	case "memory":
		return kv.NewMemoryStorage(), nil
	case "badger":
		return kv.OpenBadger(filepath.Join(cfg.DataDir, "badger"))
	case "redis":
		return kv.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix), nil
	default:
		return kv.NewDirStorage(cfg.DataDir)
	}
}

// close flushes the content store, which also closes the shared storage.
func (e *env) close() error {
	if e.content == nil {
		return nil
	}
	return e.content.Close()
}

// audit records security-relevant client actions.
func (e *env) audit(event, outcome string, attrs ...any) {
	logAttrs := append([]any{"event", event, "outcome", outcome}, attrs...)
	if outcome == "success" {
		e.logger.Info("security_event", logAttrs...)
		return
	}
	e.logger.Warn("security_event", logAttrs...)
}

// require returns the signed-in user when it holds one of roles.
func (e *env) require(roles ...domain.UserRole) (domain.User, error) {
	user, err := e.session.Require(roles...)
	if err != nil {
		return user, sessionError(err)
	}
	return user, nil
}

var errNotSignedIn = errors.New("not signed in (run: mediactl auth login)")

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return errNotSignedIn
	case errors.Is(err, session.ErrForbidden):
		return fmt.Errorf("permission denied: %w", err)
	}
	return err
}
