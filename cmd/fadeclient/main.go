package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadea/fadeclient/internal/app"
)

// version is set at build time with -ldflags "-X main.version=1.2.3".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default ~/.config/fadeapi/config.toml)")
	prefsPath := flag.String("prefs", "", "preferences file path (default ~/.config/fadeapi/prefs.toml)")
	user := flag.String("user", "", "username (defaults to the remembered one)")
	exportPath := flag.String("export", "", "download the server CSV to this file and exit")
	status := flag.Bool("status", false, "print the server status and exit")
	checkUpdate := flag.Bool("check-update", false, "check for a newer release and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("fadeclient", version)
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Username:   *user,
		Version:    version,
	}

	headless := *exportPath != "" || *status || *checkUpdate
	if !headless {
		if err := app.Run(ctx, opts); err != nil {
			fmt.Fprintf(os.Stderr, "fadeclient: %v\n", err)
			return 1
		}
		return 0
	}

	opts.LogConsole = true
	env, err := app.Setup(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fadeclient: %v\n", err)
		return 1
	}
	defer func() { _ = env.Close() }()

	switch {
	case *exportPath != "":
		err = env.Export(ctx, *exportPath, os.Stdout)
	case *status:
		err = env.PrintStatus(ctx, os.Stdout)
	case *checkUpdate:
		err = env.CheckUpdate(ctx, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fadeclient: %v\n", err)
		return 1
	}
	return 0
}
