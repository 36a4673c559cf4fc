package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinyship/reviewreply/internal/api"
	"github.com/tinyship/reviewreply/internal/auth"
	"github.com/tinyship/reviewreply/internal/daemon"
)

const shutdownTimeout = 10 * time.Second

var serveBackground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin server",
	Long: `Start the HTTP server for the review screens, the settings screen,
and the AJAX endpoint that drafts replies.

By default it listens on port 8787 in the foreground. Use --background to
detach; 'serve status' and 'serve stop' find it through a PID file in the
state directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the admin server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a background admin server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8787, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	serveCmd.Flags().BoolVarP(&serveBackground, "background", "d", false, "Detach and run in the background")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "reviewreply-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "reviewreply-serve.log")
}

func serveAddr() string {
	return net.JoinHostPort("", strconv.Itoa(viper.GetInt("port")))
}

func serveStartRun() error {
	pf := pidFile()
	if r, running := pf.Running(); running {
		return fmt.Errorf("server already running (PID %d, %s)", r.PID, r.Addr)
	}

	if serveBackground {
		return serveDetach()
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()
	return runServer(ctx, pf)
}

// serveDetach re-executes this binary as a foreground server in its own
// session, with output appended to the serve log.
func serveDetach() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("port"))}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}

	if dryRun {
		ui.DryRunMsg("Would start %s %v in the background", exe, args)
		return nil
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open serve log: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	ui.Success("Server started in background (PID %d)", child.Process.Pid)
	ui.Info("Logs: %s", serveLogPath())
	return child.Process.Release()
}

// runServer serves the admin router until ctx is cancelled, then shuts down
// gracefully. The PID file exists for as long as the listener does.
func runServer(ctx context.Context, pf *daemon.PIDFile) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	token := viper.GetString("admin.token")
	if token == "" {
		ui.Warning("admin.token is not set; nobody can log in to the admin screens")
	}

	srv, err := api.NewServer(
		s,
		newGenerator(s),
		auth.NewAuthenticator(token),
		auth.NewNonces(viper.GetString("admin.nonce_secret"), viper.GetDuration("admin.nonce_lifetime")),
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize admin server: %w", err)
	}

	addr := serveAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := pf.Write(ln.Addr().String()); err != nil {
		_ = ln.Close()
		return fmt.Errorf("write PID file: %w", err)
	}
	defer func() { _ = pf.Remove() }()

	logger.Info("admin server listening", zap.String("addr", ln.Addr().String()))
	ui.Success("Serving admin at http://localhost:%d/admin/comments?comment_type=review", ln.Addr().(*net.TCPAddr).Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("admin server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveStatusRun() error {
	pf := pidFile()
	r, running := pf.Running()
	if !running {
		if r.PID != 0 {
			ui.Warning("Removing stale PID file for %d", r.PID)
			_ = pf.Remove()
		}
		ui.Info("Server not running")
		return nil
	}
	ui.Success("Server running (PID %d) on %s", r.PID, r.Addr)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	r, running := pf.Running()
	if !running {
		return fmt.Errorf("server not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (PID %d)", r.PID)
		return nil
	}

	if err := pf.Stop(shutdownTimeout + 2*time.Second); err != nil {
		return err
	}
	ui.Success("Server stopped (PID %d)", r.PID)
	return nil
}
