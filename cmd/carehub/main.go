// Command carehub is the home-care notification center. It runs the
// terminal inbox by default and also hosts the reference REST backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/carehub/internal/app"
	"github.com/nhle/carehub/internal/authtoken"
	"github.com/nhle/carehub/internal/credential"
	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/gateway/httpapi"
	"github.com/nhle/carehub/internal/gateway/local"
	"github.com/nhle/carehub/internal/gateway/mailbox"
	"github.com/nhle/carehub/internal/logging"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/server"
	"github.com/nhle/carehub/internal/session"
	"github.com/nhle/carehub/internal/store"
)

const usage = `Usage: carehub [command] [flags]

Commands:
  tui              open the notification inbox (default)
  serve            run the REST backend
  token            print a session token for a user
  mailbox-login    store the IMAP password in the keyring
  init             write a default config file

Run "carehub <command> --help" for command flags.
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "carehub: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "tui":
		return runTUI(args)
	case "serve":
		return runServe(args)
	case "token":
		return runToken(args)
	case "mailbox-login":
		return runMailboxLogin(args)
	case "init":
		return runInit(args)
	case "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newFlagSet returns a flag set carrying the shared --config flag.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", model.DefaultConfigPath(), "path to config file")
	return flags, configPath
}

func loadConfig(flags *pflag.FlagSet, configPath *string, args []string) (*model.AppConfig, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return model.LoadConfig(*configPath)
}

func runTUI(args []string) error {
	flags, configPath := newFlagSet("tui")
	cfg, err := loadConfig(flags, configPath, args)
	if err != nil {
		return err
	}

	log, closer, err := logging.OpenFile(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		return err
	}

	provider, gw, cleanup, err := buildGateway(cfg, vault)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().Str("gateway", gw.Name()).Msg("starting inbox")

	m := app.New(app.Options{
		Gateway: gw,
		Session: provider,
		Display: cfg.Display,
		Logger:  log,
		Context: ctx,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running inbox: %w", err)
	}
	return nil
}

// buildGateway picks the session provider and gateway named by the
// config. The returned cleanup releases whatever the gateway opened.
func buildGateway(cfg *model.AppConfig, vault *credential.Vault) (session.Provider, gateway.Gateway, func(), error) {
	var provider session.Provider
	tokens := session.NewTokenProvider(vault, cfg.Session.TokenKey)
	if cfg.Session.UserID != "" {
		provider = session.StaticProvider{UserID: cfg.Session.UserID}
	} else {
		provider = tokens
	}

	switch cfg.Gateway.Kind {
	case model.GatewayLocal:
		s, err := openStore(cfg.Gateway.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return provider, local.New(s), func() { s.Close() }, nil

	case model.GatewayHTTP:
		client := httpapi.NewClient(cfg.Gateway.BaseURL, tokens.Token)
		return provider, httpapi.New(client), func() {}, nil

	case model.GatewayIMAP:
		mb := cfg.Gateway.Mailbox
		client := mailbox.NewIMAPClient(mb.Host, mb.Port, mb.Username, mb.Folder, func() (string, error) {
			return vault.Get(credential.MailboxPasswordKey(mb.Username))
		}, mb.TLS)

		// A mailbox belongs to one person; the session is pinned to them.
		owner := cfg.Session.UserID
		if owner == "" {
			owner = mb.Username
		}
		return session.StaticProvider{UserID: owner}, mailbox.New(client, owner), func() {}, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown gateway kind %q", cfg.Gateway.Kind)
}

func openStore(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}

func runServe(args []string) error {
	flags, configPath := newFlagSet("serve")
	addr := flags.String("addr", "", "listen address (overrides server.addr)")
	fixtures := flags.String("fixtures", "", "YAML fixtures to load at startup (overrides server.fixtures)")
	cfg, err := loadConfig(flags, configPath, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *fixtures != "" {
		cfg.Server.Fixtures = *fixtures
	}

	log := logging.Console(cfg.Log.Level)

	s, err := openStore(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Fixtures != "" {
		n, err := store.LoadFixturesFile(ctx, s, cfg.Server.Fixtures, time.Now())
		if err != nil {
			return err
		}
		log.Info().Int("count", n).Str("path", cfg.Server.Fixtures).Msg("loaded fixtures")
	}

	srv, err := server.New(s, cfg.Server, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func runToken(args []string) error {
	flags, configPath := newFlagSet("token")
	userID := flags.String("user", "", "user id the token is issued for (required)")
	name := flags.String("name", "", "display name")
	ttl := flags.Duration("ttl", authtoken.DefaultTTL, "token lifetime")
	save := flags.Bool("save", false, "store the token in the keyring as the current session")
	cfg, err := loadConfig(flags, configPath, args)
	if err != nil {
		return err
	}

	if *userID == "" {
		return errors.New("token: --user is required")
	}
	if cfg.Server.JWTSecret == "" {
		return errors.New("token: server.jwt_secret is not set")
	}

	tok, err := authtoken.Issue(cfg.Server.JWTSecret, *userID, *name, time.Now(), *ttl)
	if err != nil {
		return err
	}

	if *save {
		vault, err := credential.Open(model.ConfigDir())
		if err != nil {
			return err
		}
		if _, err := session.NewTokenProvider(vault, cfg.Session.TokenKey).SignIn(context.Background(), tok); err != nil {
			return err
		}
	}

	fmt.Println(tok)
	return nil
}

func runMailboxLogin(args []string) error {
	flags, configPath := newFlagSet("mailbox-login")
	cfg, err := loadConfig(flags, configPath, args)
	if err != nil {
		return err
	}

	username := cfg.Gateway.Mailbox.Username
	if username == "" {
		return errors.New("mailbox-login: gateway.mailbox.username is not set")
	}

	var password string
	err = huh.NewInput().
		Title("IMAP password for " + username).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run()
	if err != nil {
		return err
	}

	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		return err
	}
	return vault.Set(credential.MailboxPasswordKey(username), password)
}

func runInit(args []string) error {
	flags, configPath := newFlagSet("init")
	force := flags.Bool("force", false, "overwrite an existing config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*configPath); err == nil && !*force {
		return fmt.Errorf("init: %s already exists (use --force to overwrite)", *configPath)
	}

	if err := model.SaveConfig(*configPath, model.DefaultAppConfig()); err != nil {
		return err
	}
	fmt.Println("wrote", *configPath)
	return nil
}
