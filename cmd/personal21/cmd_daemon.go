package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/personal21/internal/config"
)

const (
	daemonBinary = "personal21d"
	pidFile      = "personal21d.pid"
	logFile      = "personal21d.log"
)

// daemonAddr returns the base URL of the local daemon
func daemonAddr() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	return fmt.Sprintf("http://%s:%d", cfg.Daemon.Bind, cfg.Daemon.Port)
}

func newStartCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the local daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			addr := daemonAddr()

			if isRunning(addr) {
				fmt.Fprintln(w, "✓ Daemon is already running")
				return nil
			}

			dir, err := config.EnsureDir()
			if err != nil {
				return fmt.Errorf("setup config directory: %w", err)
			}

			path, err := findDaemonBinary()
			if err != nil {
				return fmt.Errorf("find daemon binary: %w", err)
			}

			daemon := exec.Command(path)
			daemon.Dir = dir
			daemon.Stdout = nil
			daemon.Stderr = nil
			configureDaemonProcess(daemon)

			if err := daemon.Start(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			fmt.Fprint(w, "Starting daemon...")
			for range 30 {
				time.Sleep(100 * time.Millisecond)
				if isRunning(addr) {
					fmt.Fprintln(w, " ✓")
					fmt.Fprintf(w, "Daemon running at %s\n", addr)
					return nil
				}
				fmt.Fprint(w, ".")
			}

			fmt.Fprintln(w, " ✗")
			return fmt.Errorf("daemon failed to start (check logs with 'personal21 logs')")
		},
	}
}

func newStopCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the local daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			addr := daemonAddr()

			if !isRunning(addr) {
				fmt.Fprintln(w, "Daemon is not running")
				return nil
			}

			dir, err := config.Dir()
			if err != nil {
				return err
			}
			pid, err := readPID(filepath.Join(dir, pidFile))
			if err != nil {
				return err
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("find process: %w", err)
			}

			fmt.Fprint(w, "Stopping daemon...")
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("send signal: %w", err)
			}

			for range 50 {
				time.Sleep(100 * time.Millisecond)
				if !isRunning(addr) {
					fmt.Fprintln(w, " ✓")
					return nil
				}
				fmt.Fprint(w, ".")
			}

			fmt.Fprintln(w, " ✗")
			return fmt.Errorf("daemon did not stop gracefully")
		},
	}
}

func newLogsCommand(opts *rootOptions) *cobra.Command {
	var tail int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			return printLogTail(cmd.OutOrStdout(), filepath.Join(dir, "logs", logFile), tail)
		},
	}

	cmd.Flags().Int64Var(&tail, "bytes", 4096, "how many trailing bytes of the log to show")

	return cmd
}

// printLogTail prints the complete lines within the last n bytes of path
func printLogTail(w io.Writer, path string, n int64) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(w, "No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := max(info.Size()-n, 0)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	// Skip partial first line if we seeked
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(addr string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the personal21d binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	// Check relative to this binary
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{
		"/usr/local/bin/" + daemonBinary,
		"./" + daemonBinary,
		"./cmd/personal21d/" + daemonBinary,
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/personal21d')", daemonBinary)
}
