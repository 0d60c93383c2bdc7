package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"challenge-cards/internal/catalog"
	"challenge-cards/internal/client"
	"challenge-cards/internal/config"
	"challenge-cards/internal/repository/sqlite"
	"challenge-cards/internal/session"
)

// app carries what every subcommand needs.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	db      *sql.DB
	session *session.Session
	api     *client.Client
}

var (
	current *app
	apiURL  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "cardctl",
	Short:        "Rate challenge cards from the terminal",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current != nil && current.db != nil {
			return current.db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "rating API base URL (overrides client.apiurl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log sync activity")
}

func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}

	log := logrus.New()
	log.SetOutput(logOut)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := sqlite.Open(cfg.Client.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	store := session.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	sess := session.New(store)
	if err := sess.Restore(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		session: sess,
		api:     client.New(cfg.Client.APIURL),
	}, nil
}

func (a *app) catalog() (*catalog.Catalog, error) {
	c, err := catalog.Load(a.cfg.Client.CatalogPath, a.cfg.Client.CapabilitiesPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}
