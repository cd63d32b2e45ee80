package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mickamy/rowsnap"
)

// Account is a login-server account row whose cash is mutated by a
// background goroutine.
type Account struct {
	rowsnap.Fields

	schema string

	mu       sync.Mutex
	ID       int
	Username string
	Cash     int
}

func NewAccount(schema string, id int) *Account {
	a := &Account{schema: schema, ID: id}
	a.Bind("dwAccountID", rowsnap.Ref(&a.ID)).
		Bind("sUsername", rowsnap.Locked(&a.mu, &a.Username)).
		Bind("nNexonCash", rowsnap.Locked(&a.mu, &a.Cash))
	return a
}

func (a *Account) SchemaName() string { return a.schema }
func (a *Account) TableName() string  { return "account" }
func (a *Account) KeyColumn() string  { return "dwAccountID" }

func (a *Account) AddCash(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Cash += n
	return a.Cash
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath   string
		accountID int
		once      bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Keep an account row in sync while its cash keeps growing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("account") {
				cfg.AccountID = accountID
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cfg, once)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().IntVarP(&accountID, "account", "a", 0, "account id to track")
	cmd.Flags().BoolVar(&once, "once", false, "run a single mutate and update cycle")
	return cmd
}

func run(ctx context.Context, cfg Config, once bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	driver, dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	db, err := rowsnap.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer func(db *rowsnap.DB) {
		_ = db.Close()
	}(db)
	db = db.WithLogger(logger)

	ctx = rowsnap.WithOperator(ctx, cfg.Operator)
	ctx = rowsnap.WithTraceID(ctx, uuid.NewString())

	acc := NewAccount(cfg.Schema, cfg.AccountID)
	snap, err := rowsnap.New(ctx, db, acc, acc.ID, rowsnap.Config{
		AutoFlush: cfg.AutoFlush,
		Dialect:   db.Dialect(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("load account %d: %w", acc.ID, err)
	}
	if err := snap.Dump(os.Stdout); err != nil {
		return err
	}

	if once {
		acc.AddCash(10000)
		return update(ctx, snap)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, cfg.Interval, func() error {
			cash := acc.AddCash(10000)
			logger.DebugContext(ctx, "cash added", "account", acc.ID, "cash", cash)
			return nil
		})
	})
	g.Go(func() error {
		return every(ctx, cfg.Interval, func() error {
			return update(ctx, snap)
		})
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// update prints the statement the next flush would run, then runs it.
func update(ctx context.Context, snap *rowsnap.Snapshot) error {
	snap.Diff()
	if st, ok := snap.Statement(); ok {
		color.New(color.FgCyan, color.Bold).Fprintf(os.Stdout, "%s ", st.Op)
		color.New(color.FgWhite).Fprintln(os.Stdout, st.SQL)
		color.New(color.FgYellow).Fprintf(os.Stdout, "  args: %v\n", st.Args)
	}
	ok, err := snap.Update(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "update failed: %v\n", err)
		// Pending changes are kept and retried on the next tick.
		if errors.Is(err, rowsnap.ErrConnection) {
			return nil
		}
		return err
	}
	if ok {
		color.New(color.FgGreen).Fprintln(os.Stdout, "  flushed")
	}
	return nil
}

func every(ctx context.Context, d time.Duration, fn func() error) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := fn(); err != nil {
				return err
			}
		}
	}
}
