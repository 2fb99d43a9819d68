package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"journal-digest/internal/config"
)

const pidFileName = ".journal-digest.pid"

func NewDaemonCmd() *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run serve in the background (start/stop/restart/status)",
	}

	daemonCmd.AddCommand(&cobra.Command{Use: "start", Short: "Start the server as a daemon", RunE: runDaemonStart})
	daemonCmd.AddCommand(&cobra.Command{Use: "stop", Short: "Stop the daemon", RunE: runDaemonStop})
	daemonCmd.AddCommand(&cobra.Command{Use: "restart", Short: "Restart the daemon", RunE: runDaemonRestart})
	daemonCmd.AddCommand(&cobra.Command{Use: "status", Short: "Check daemon status", RunE: runDaemonStatus})

	return daemonCmd
}

func getPidFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", pidFileName)
	}
	return filepath.Join(homeDir, pidFileName)
}

// getLogFile is where the daemon's stdout and stderr go: the configured log file.
func getLogFile() string {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "journal-digest.log"
	}
	return cfg.Storage.LogPath
}

func readPid() (int, error) {
	data, err := os.ReadFile(getPidFile())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writePid(pid int) error {
	return os.WriteFile(getPidFile(), []byte(strconv.Itoa(pid)), 0644)
}

func removePidFile() {
	_ = os.Remove(getPidFile())
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if pid, err := readPid(); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logFile := getLogFile()
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer out.Close()

	cmdArgs := []string{"serve"}
	if configPath != "" {
		cmdArgs = append(cmdArgs, "--config", configPath)
	}

	proc := exec.Command(executable, cmdArgs...)
	proc.Stdout = out
	proc.Stderr = out
	proc.Dir, _ = os.Getwd()
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := proc.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	if err := writePid(proc.Process.Pid); err != nil {
		_ = proc.Process.Kill()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (PID: %d, Log: %s)\n", proc.Process.Pid, logFile)
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	pid, err := readPid()
	if err != nil {
		return errors.New("daemon is not running (PID file not found)")
	}
	if !isProcessRunning(pid) {
		removePidFile()
		return errors.New("daemon is not running (process not found)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		removePidFile()
		return fmt.Errorf("failed to find process: %w", err)
	}

	// SIGTERM triggers the graceful HTTP shutdown in serve.
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	for i := 0; i < 40; i++ {
		time.Sleep(500 * time.Millisecond)
		if !isProcessRunning(pid) {
			removePidFile()
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon stopped (PID: %d)\n", pid)
			return nil
		}
	}

	_ = process.Signal(syscall.SIGKILL)
	time.Sleep(500 * time.Millisecond)
	removePidFile()
	fmt.Fprintf(cmd.OutOrStdout(), "Daemon force stopped (PID: %d)\n", pid)
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	if err := runDaemonStop(cmd, args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	time.Sleep(time.Second)
	return runDaemonStart(cmd, args)
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	pid, err := readPid()
	if err != nil {
		fmt.Fprintln(w, "Status: Not running")
		return nil
	}

	if isProcessRunning(pid) {
		fmt.Fprintf(w, "Status: Running (PID: %d)\n", pid)
		fmt.Fprintf(w, "PID file: %s\n", getPidFile())
		fmt.Fprintf(w, "Log file: %s\n", getLogFile())
	} else {
		fmt.Fprintln(w, "Status: Not running (stale PID file)")
		removePidFile()
	}
	return nil
}
