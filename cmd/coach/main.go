// Command coach is the command-line shell of the coaching board.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/coachboard/internal/app"
	"github.com/and161185/coachboard/internal/config"
	"github.com/and161185/coachboard/internal/errs"
	"github.com/and161185/coachboard/internal/localcache"
	"github.com/and161185/coachboard/internal/remote"
	"github.com/and161185/coachboard/internal/syncer"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(config.LoadClient()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// runtime is everything one command invocation needs.
type runtime struct {
	shell *app.Shell
	log   *zap.Logger
	close func()
}

type options struct {
	cfg       config.Client
	ephemeral bool
}

// open wires cache, remote client, sync service and shell, then starts the shell.
func (o *options) open(ctx context.Context, stderr io.Writer) (*runtime, error) {
	log := newLogger(o.cfg.LogLevel, stderr)

	var (
		cache    localcache.Cache
		sessions remote.SessionStore
		closers  []func() error
	)
	if o.ephemeral {
		cache, sessions = localcache.NewMemory(), &remote.MemorySessions{}
	} else {
		sq, err := localcache.OpenSQLite(ctx, o.cfg.CachePath())
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		cache, sessions = sq, remote.FileSessions{Path: o.cfg.SessionPath()}
		closers = append(closers, sq.Close)
	}

	rc := remote.New(remote.Config{
		URL:      o.cfg.RemoteURL,
		APIKey:   o.cfg.RemoteKey,
		Sessions: sessions,
		Timeout:  15 * time.Second,
	}, log.Named("remote"))
	if !rc.Enabled() {
		log.Debug("remote store not configured; working locally")
	}

	sh := app.New(rc, syncer.New(rc, cache, log.Named("sync")), log.Named("app"))
	rt := &runtime{shell: sh, log: log, close: func() {
		sh.Close()
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close", zap.Error(err))
			}
		}
		_ = log.Sync()
	}}
	if err := sh.Start(ctx); err != nil {
		log.Warn("resume session", zap.Error(err))
	}
	return rt, nil
}

// newLogger writes human-readable logs to w at level, defaulting to warn.
func newLogger(level string, w io.Writer) *zap.Logger {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
}

// withShell runs fn against a started shell and closes it afterwards, so
// every save issued by fn is flushed before the process exits.
func withShell(cmd *cobra.Command, o *options, fn func(ctx context.Context, sh *app.Shell) error) error {
	ctx := cmd.Context()
	rt, err := o.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.close()
	err = fn(ctx, rt.shell)
	if errors.Is(err, errs.ErrNotReady) {
		return fmt.Errorf("not signed in (run `coach signin`): %w", err)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
