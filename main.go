// sitecopy: save the text of a web page to <out-dir>/<host>.txt.
//
//	sitecopy [options] <URL>
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Exit codes by failure kind.
const (
	exitOK          = 0
	exitUsage       = 1
	exitAddress     = 2
	exitTransfer    = 3
	exitWriteFailed = 4
)

// cliConfig holds parsed command-line options.
type cliConfig struct {
	copier config
	log    logConfig
	args   []string
}

func parseFlags(args []string) (cliConfig, error) {
	def := defaultConfig()
	fs := pflag.NewFlagSet("sitecopy", pflag.ContinueOnError)
	outDir := fs.StringP("out-dir", "d", def.outputDir, "Existing directory the page is saved into")
	timeout := fs.Duration("timeout", def.timeout, "HTTP fetch timeout (0 disables)")
	userAgent := fs.String("user-agent", def.userAgent, "HTTP User-Agent header")
	maxSize := fs.String("max-response-size", fmt.Sprintf("%dMB", def.maxResponseBytes>>20), "Largest response body accepted, e.g. 10MB (0 for unlimited)")
	proxy := fs.String("proxy", "", "HTTP proxy URL for the request (a local proxy needs --allow-private)")
	allowPrivate := fs.Bool("allow-private", false, "Allow fetching loopback and private network addresses")
	silent := fs.BoolP("silent", "s", false, "Suppress all output except errors")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Write logs to this file instead of stderr")
	logMaxSize := fs.Int("log-max-size", 10, "Rotate the log file after this many megabytes")
	logMaxBackups := fs.Int("log-max-backups", 3, "Rotated log files to keep")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sitecopy [options] <URL>\n\n")
		fmt.Fprintf(os.Stderr, "Save the text of a web page to <out-dir>/<host>.txt.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	var maxBytes int64
	if *maxSize != "0" {
		n, err := units.RAMInBytes(*maxSize)
		if err != nil {
			return cliConfig{}, fmt.Errorf("invalid --max-response-size %q: %w", *maxSize, err)
		}
		maxBytes = n
	}

	return cliConfig{
		copier: config{
			outputDir:        *outDir,
			timeout:          *timeout,
			userAgent:        *userAgent,
			maxResponseBytes: maxBytes,
			proxyURL:         *proxy,
			blockPrivate:     !*allowPrivate,
		},
		log: logConfig{
			level:      *logLevel,
			file:       *logFile,
			maxSize:    *logMaxSize,
			maxBackups: *logMaxBackups,
			silent:     *silent,
		},
		args: fs.Args(),
	}, nil
}

// run copies the single address in cfg.args.
func run(cfg cliConfig) error {
	if len(cfg.args) != 1 {
		return fmt.Errorf("exactly one URL argument required, got %d", len(cfg.args))
	}

	c, err := newCopier(cfg.copier)
	if err != nil {
		return err
	}

	start := time.Now()
	path, err := c.copy(cfg.args[0])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"url":  cfg.args[0],
			"step": failedStep(err),
		}).Debug("copy failed")
		return err
	}
	fmt.Fprintf(progressOut, "✓ %s → %s (%s)\n", shortURL(cfg.args[0]), path, time.Since(start).Round(time.Millisecond))
	return nil
}

// exitCode maps an error from run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrUnresolvableAddress):
		return exitAddress
	case errors.Is(err, ErrTransfer):
		return exitTransfer
	case errors.Is(err, ErrWrite):
		return exitWriteFailed
	default:
		return exitUsage
	}
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(exitOK)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}

	initLog(cfg.log)
	if !cfg.log.silent {
		progressOut = os.Stdout
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
