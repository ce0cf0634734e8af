package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/console"
	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/dump"
	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/passwd"
	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/subcmd"
	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/watch"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/juju/errors"
	flag "github.com/spf13/pflag"
)

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	console.Mod,
	dump.Mod,
	passwd.Mod,
	watch.Mod,
}

func main() {
	flags := flag.NewFlagSet("bobbyremote", flag.ContinueOnError)
	configPaths := flags.StringSliceP("config", "c", []string{"bobbyremote.hcl"}, "config file, repeat to layer")
	debug := flags.BoolP("debug", "d", false, "debug logging")
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bobbyremote [flags] command [args]\ncommands:\n")
		for _, m := range modules {
			fmt.Fprintf(os.Stderr, "  %-8s %s\n", m.Name, m.Desc)
		}
		fmt.Fprintf(os.Stderr, "flags:\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	command := flags.Arg(0)
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		log.Fatal(err)
	}

	if subcmd.SdNotify("start") {
		// under systemd, journal adds timestamps
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	osfs, err := config.NewOsFullReader(".")
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	cfg, err := config.Read(log, osfs, (*configPaths)...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if *debug || cfg.LogDebug {
		log.SetLevel(log2.LDebug)
	}
	log.Debugf("config=%+v", cfg)

	ctx := log2.ContextWithLog(context.Background(), log)
	if err := mod.Main(ctx, cfg, flags.Args()[1:]); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
