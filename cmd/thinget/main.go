// Command thinget fetches one URL through an inet session, prints the status
// on stderr and streams the body to stdout.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/SaitoAtsushi/thin-http/internal/app"
	"github.com/SaitoAtsushi/thin-http/internal/config"
	"github.com/SaitoAtsushi/thin-http/internal/logger"
	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "thinget: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("thinget", pflag.ContinueOnError)
	fs.String("agent", "", "user agent string")
	fs.String("proxy", "", "proxy address (host:port or URL); direct when empty")
	fs.String("backend", "", "backend: resty or wininet")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Int64("timeout", 0, "request timeout in seconds (resty backend)")
	fs.Bool("insecure-skip-verify", false, "skip TLS certificate verification (resty backend)")
	fs.StringArray("header", nil, `extra request header "Name: value" (repeatable)`)
	fs.Bool("insecure", false, "do not upgrade http:// URLs to https://")
	fs.Bool("status-only", false, "print the status and skip the body")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet()
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: thinget [flags] URL")
	}
	target := fs.Arg(0)

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	backend, err := app.NewBackend(cfg, log)
	if err != nil {
		return err
	}
	session, err := app.OpenSession(cfg, backend, log)
	if err != nil {
		return err
	}
	defer session.Close()

	headers, _ := fs.GetStringArray("header")
	insecure, _ := fs.GetBool("insecure")
	statusOnly, _ := fs.GetBool("status-only")

	opts := []inet.GetOption{}
	for _, h := range headers {
		opts = append(opts, inet.WithRawHeaders(h))
	}
	if insecure {
		opts = append(opts, inet.WithFlags(inet.DefaultFlags.Without(inet.FlagSecure)))
	}

	resp, err := session.Get(ctx, target, opts...)
	if err != nil {
		return err
	}
	defer resp.Close()

	status, err := resp.QueryStatus()
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "status: %d\n", status)
	if statusOnly {
		return nil
	}

	out := bufio.NewWriter(stdout)
	for b, err := range resp.Bytes().All() {
		if err != nil {
			return err
		}
		if err := out.WriteByte(b); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}
	return out.Flush()
}
