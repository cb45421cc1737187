// Command shopctl is the admin console for the shop: it lists and reviews
// orders, runs slip analysis and applies payment decisions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joao-fontenele/courseshop/internal/client"
)

const usage = `usage: shopctl [-api URL] [-state DIR] <command> [flags] [args]

commands:
  login    -email EMAIL [-password PASSWORD]
  logout
  whoami
  orders   [-status S] [-payment S] [-type T] [-search Q] [-page N] [-size N]
  show     ORDER_ID
  confirm  [-notes N] ORDER_ID
  reject   -reason R [-notes N] ORDER_ID
  cancel   [-notes N] ORDER_ID
  bulk     -action A [-notes N] ORDER_ID...
  analyze  [-cached] ORDER_ID
`

type app struct {
	session *client.Session
	console *client.Console
	out     io.Writer
	logger  *slog.Logger
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fs := flag.NewFlagSet("shopctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	api := fs.String("api", envOr("SHOPCTL_API", "http://localhost:8080"), "gateway base URL")
	state := fs.String("state", envOr("SHOPCTL_STATE", defaultStateDir()), "directory for the stored session")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(*api, &http.Client{Timeout: 60 * time.Second})
	a := &app{
		session: client.NewSession(c, client.NewFileStore(*state), logger),
		console: client.NewConsole(c),
		out:     os.Stdout,
		logger:  logger,
	}

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", client.Message(err))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shopctl"
	}
	return filepath.Join(dir, "shopctl")
}
