// Command todoctl manages todos on a running server through the client store.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"gin-gonic-todos/internal/config"
	"gin-gonic-todos/internal/logging"
	"gin-gonic-todos/internal/storage/httpclient"
	"gin-gonic-todos/internal/store"
	"gin-gonic-todos/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default $TODOS_CONFIG)")
	apiURL := flag.String("api", "", "API base URL, overrides client.api_url")
	verbose := flag.Bool("v", false, "log store activity to stderr")
	flag.Usage = func() { printHelp(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printHelp(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(os.Stderr, err.Error())
		os.Exit(2)
	}
	if *apiURL != "" {
		cfg.Client.APIURL = *apiURL
	}

	var logger *log.Logger
	if *verbose {
		cfg.Log.Level = "debug"
		logger = logging.New(os.Stderr, cfg.Log, "todoctl")
	} else {
		logger = log.New(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	client := httpclient.New(cfg.Client.APIURL, httpclient.WithTimeout(cfg.Client.Timeout.Duration))
	s := store.New(usecase.New(client),
		store.WithTimeout(cfg.Client.Timeout.Duration),
		store.WithLogger(logger),
	)

	code := Run(ctx, s, args, os.Stdout, os.Stderr)
	s.Close()
	stop()
	os.Exit(code)
}
