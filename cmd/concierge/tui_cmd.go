package main

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/concierge/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	Long: `Launches the terminal UI against --api. When the daemon does not answer,
it is started in the background with its log in the user cache directory.`,
	RunE: runTUI,
}

const daemonStartTimeout = 5 * time.Second

func runTUI(cmd *cobra.Command, args []string) error {
	if !isDaemonRunning() {
		fmt.Println("Concierge daemon not running. Starting background service...")
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	if err := tui.New(apiAddr).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isDaemonRunning() bool {
	health, err := CheckHealth()
	return err == nil && health.OK
}

// startDaemon runs "concierge daemon" detached, listening where --api points.
func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	u, err := url.Parse(apiAddr)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid --api address %q", apiAddr)
	}

	logPath, err := daemonLogPath()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "daemon", "--listen", u.Host)
	configureDaemonProc(cmd)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return err
	}
	// The child keeps running after the TUI exits.
	_ = cmd.Process.Release()

	fmt.Print("   Waiting for daemon...")
	deadline := time.Now().Add(daemonStartTimeout)
	for time.Now().Before(deadline) {
		if isDaemonRunning() {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s, see %s", apiAddr, logPath)
}

func daemonLogPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "concierge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	return filepath.Join(dir, "daemon.log"), nil
}
