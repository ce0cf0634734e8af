package console

import (
	"context"
	"fmt"
	"os"

	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/subcmd"
	"github.com/bobbycar-graz/bobbyremote/helpers/cli"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/log2"
)

const modName = "console"

var Mod = subcmd.Mod{Name: modName, Desc: "interactive session shell", Main: Main}

func Main(ctx context.Context, config *config.Config, args []string) error {
	log := log2.ContextValueLogger(ctx)
	out := os.Stdout
	hooks := session.Hooks{
		State: func(s session.State) { log.Infof("state=%s", s) },
		Alert: func(title, message string) { fmt.Fprintf(out, "\n[%s] %s\n", title, message) },
		Ready: func(es []nvs.Entry) { log.Infof("configuration ready entries=%d", len(es)) },
	}
	rt, err := subcmd.NewRuntime(ctx, config, hooks)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := rt.Client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(err)
		}
	}()
	rt.Client.Connect()

	c := New(rt.Client, out)
	for _, line := range args {
		c.Execute(line)
	}
	cli.MainLoop(modName, c.Execute, c.Complete, c.Done, func(s os.Signal) {
		log.Infof("signal=%v", s)
		rt.Close()
		os.Exit(0)
	})
	return nil
}
