// Package cli provides shared version reporting and logging for the
// Ourocode command line tools.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Version information for all CLI tools.
const (
	Version   = "0.1.0"
	CommitSHA = "unknown" // set during build
)

// VersionInfo contains version and build information.
type VersionInfo struct {
	Version   string `json:"version"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion prints version information in a consistent format.
func PrintVersion(toolName string, jsonOutput bool) {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err == nil {
			fmt.Println(string(data))
			return
		}
		fmt.Fprintf(os.Stderr, "Error: failed to marshal version info: %v\n", err)
	}

	fmt.Printf("%s v%s\n", toolName, info.Version)
	if info.CommitSHA != "unknown" && info.CommitSHA != "" {
		fmt.Printf("Commit: %s\n", info.CommitSHA)
	}
	fmt.Printf("Go Version: %s\n", info.GoVersion)
	fmt.Printf("Platform: %s/%s\n", info.Platform, info.Arch)
}

// ExitWithError prints an error message and exits with code 1.
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// Logger provides leveled logging for CLI tools. Messages go to stderr so
// command output on stdout (IR text, hashes) stays pipeable.
type Logger struct {
	Verbose   bool
	DebugMode bool
	Out       io.Writer // defaults to os.Stderr when nil
}

// NewLogger creates a new logger instance.
func NewLogger(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, DebugMode: debug, Out: os.Stderr}
}

func (l *Logger) printf(level, format string, args []interface{}) {
	out := l.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", level, time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Info logs an info message when verbose output is enabled.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		l.printf("INFO", format, args)
	}
}

// Debug logs a debug message when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.DebugMode {
		l.printf("DEBUG", format, args)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf("WARN", format, args)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.printf("ERROR", format, args)
}
