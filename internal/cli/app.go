package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/backend"
	"github.com/roach88/exprstate/internal/engine"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/remote"
	"github.com/roach88/exprstate/internal/session"
	"github.com/roach88/exprstate/internal/store"
)

// app is the store, session, backend and engine behind one command.
type app struct {
	logger *slog.Logger

	store  *store.Store
	kv     *session.SQLiteKV
	client backend.Client
	local  *backend.Local // nil unless --local

	engine *engine.Engine
	runner *engine.Runner

	cancel context.CancelFunc
	done   chan error
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openSession opens the database and the session KV.
func openSession(opts *RootOptions) (*store.Store, *session.SQLiteKV, error) {
	cfg := opts.Config

	opts.Logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	kv, err := session.NewSQLiteKV(st, cfg.SessionID)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open session", err)
	}
	return st, kv, nil
}

// openApp wires everything and starts the engine loop.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg := opts.Config

	st, kv, err := openSession(opts)
	if err != nil {
		return nil, err
	}

	a := &app{
		logger: opts.Logger,
		store:  st,
		kv:     kv,
	}

	if cfg.Local {
		a.local = backend.NewLocal(st)
		a.client = a.local
	} else {
		c, err := backend.NewHTTPClient(cfg.BackendURL, cfg.RequestTimeout, a.logger)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "invalid backend", err)
		}
		a.client = c
	}

	a.engine = engine.New(engine.WithLogger(a.logger))
	a.runner = engine.NewRunner(a.engine, a.client, kv, engine.WithRequestTimeout(cfg.RequestTimeout))

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan error, 1)
	go func() {
		a.done <- a.engine.Run(runCtx)
	}()

	a.logger.Debug("engine ready", "session", kv.ID(), "local", cfg.Local)
	return a, nil
}

// Close stops the engine, waits for effects and closes the database.
func (a *app) Close() error {
	a.engine.Stop()
	a.cancel()
	<-a.done
	a.runner.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// settle waits for the dispatched work to finish.
func (a *app) settle(ctx context.Context) error {
	if err := a.engine.Settle(ctx); err != nil {
		return WrapExitError(ExitCommandError, "interrupted", err)
	}
	return nil
}

// load resumes the session's project, or creates one, and waits until its
// bindings and their expressions have been fetched.
func (a *app) load(ctx context.Context) (bool, error) {
	_, resumed := engine.Bootstrap(ctx, a.engine, a.kv)
	if err := a.settle(ctx); err != nil {
		return resumed, err
	}

	name := engine.RequestCreateProject
	if resumed {
		name = engine.RequestListBindings
	}
	if err := a.requestError(name); err != nil {
		return resumed, err
	}
	return resumed, nil
}

// requestError converts a failed backend request into an ExitError.
func (a *app) requestError(name string) error {
	s := a.runner.RequestStatus(name)
	if s.Kind != remote.Failure {
		return nil
	}
	return NewExitError(ExitCommandError, name+" failed: "+s.Message)
}

// fetchStatus reports the status of hash, treating stored hashes as fetched.
func (a *app) fetchStatus(hash ir.ExprHash) remote.Status {
	if a.engine.State().Store.Has(hash) {
		return remote.Done()
	}
	return a.runner.Status(hash)
}

// run opens the app, calls fn and closes the app.
func (o *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app, f *OutputFormatter) error) error {
	ctx, cancel := commandContext(cmd, o.Logger)
	defer cancel()

	a, err := openApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	f := o.formatter(cmd)
	f.Session = a.kv.ID()
	return fn(ctx, a, f)
}
