// Command irccd is the daemon binary: it loads a TOML configuration,
// brings up every configured server and transport listener, and runs
// the dispatcher until a signal arrives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/jessevdk/go-flags"
	"github.com/oklog/run"

	"github.com/irccd-go/irccd/internal/config"
	"github.com/irccd-go/irccd/internal/daemon"
	"github.com/irccd-go/irccd/internal/transport"
)

// options mirrors spec.md §6.4's daemon-side flags; irccd itself only
// needs -c/-v, the rest belong to irccdctl.
type options struct {
	Config  string `short:"c" long:"config" description:"configuration file" default:"/etc/irccd.conf"`
	Verbose []bool `short:"v" long:"verbose" description:"increase log verbosity (stackable)"`
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "irccd:", err)
		os.Exit(1)
	}
}

func execute() error {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return nil
		}
		return err
	}

	level := hclog.Info
	for range opts.Verbose {
		level = stepDown(level)
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "irccd",
		Level: level,
	})

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d := daemon.New(log)

	for _, sc := range cfg.Servers {
		if err := d.AddServer(sc.ToServerConfig()); err != nil {
			return fmt.Errorf("adding server %q: %w", sc.Name, err)
		}
	}

	for _, r := range cfg.Rules {
		d.Rules().Add(r.ToRule())
	}

	var g run.Group

	for _, tc := range cfg.Transports {
		ln, err := transport.Listen(tc.ToListenerConfig())
		if err != nil {
			return fmt.Errorf("listening on transport %q: %w", tc.Address, err)
		}

		ts := transport.NewServer(ln, tc.Password, d.Frames(), log.Named("transport"))
		d.AddTransport(ts)

		g.Add(func() error {
			ts.Run()
			return nil
		}, func(error) {
			ts.Close()
		})
	}

	g.Add(func() error {
		d.Run()
		return nil
	}, func(error) {
		d.Stop()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	g.Add(func() error {
		<-sigCh
		return nil
	}, func(error) {
		signal.Stop(sigCh)
		close(sigCh)
	})

	return g.Run()
}

func stepDown(level hclog.Level) hclog.Level {
	switch level {
	case hclog.Info:
		return hclog.Debug
	case hclog.Debug:
		return hclog.Trace
	default:
		return hclog.Trace
	}
}
