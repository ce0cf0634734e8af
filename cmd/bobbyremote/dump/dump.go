// Package dump downloads device configuration once and prints it as JSON.
package dump

import (
	"context"
	"io/ioutil"
	"os"
	"time"

	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/subcmd"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/juju/errors"
)

const DefaultTimeout = time.Minute

var Mod = subcmd.Mod{Name: "dump", Desc: "print configuration JSON, optional output FILE", Main: Main}

func Main(ctx context.Context, config *config.Config, args []string) error {
	log := log2.ContextValueLogger(ctx)
	ready := make(chan struct{}, 1)
	hooks := session.Hooks{
		Alert: func(title, message string) { log.Errorf("%s: %s", title, message) },
		Progress: func(p nvs.Progress) {
			if p.Known() {
				log.Debugf("dump %d/%d", p.Received, p.Total)
			}
		},
		Ready: func([]nvs.Entry) {
			select {
			case ready <- struct{}{}:
			default:
			}
		},
	}
	rt, err := subcmd.NewRuntime(ctx, config, hooks)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	go func() { _ = rt.Client.Run(ctx) }()
	rt.Client.Connect()

	select {
	case <-ready:
	case <-ctx.Done():
		return errors.Timeoutf("configuration dump state=%s", rt.Client.State())
	}
	b, err := rt.Client.ExportConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		return errors.Annotate(ioutil.WriteFile(args[0], append(b, '\n'), 0644), "dump")
	}
	_, err = os.Stdout.Write(append(b, '\n'))
	return err
}
