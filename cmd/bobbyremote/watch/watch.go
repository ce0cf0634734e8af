// Package watch runs a headless session, e.g. under systemd,
// forwarding state and live data to telemetry.
package watch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/subcmd"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/coreos/go-systemd/daemon"
)

var Mod = subcmd.Mod{Name: "watch", Desc: "keep session open until signal", Main: Main}

func Main(ctx context.Context, config *config.Config, args []string) error {
	log := log2.ContextValueLogger(ctx)
	hooks := session.Hooks{
		State: func(s session.State) { log.Infof("state=%s", s) },
		Alert: func(title, message string) { log.Infof("alert title=%q message=%q", title, message) },
		Ready: func(es []nvs.Entry) { log.Infof("configuration ready entries=%d", len(es)) },
	}
	rt, err := subcmd.NewRuntime(ctx, config, hooks)
	if err != nil {
		return err
	}
	defer rt.Close()
	if len(args) > 0 {
		rt.Client.SetVisibleKeys(args)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			log.Infof("signal=%v", s)
			subcmd.SdNotify(daemon.SdNotifyStopping)
			cancel()
		case <-ctx.Done():
		}
	}()

	rt.Client.Connect()
	subcmd.SdNotify(daemon.SdNotifyReady)
	log.Infof("watch device=%s gateway=%s", config.Device.ID, config.Gateway.URL)
	if err = rt.Client.Run(ctx); err == context.Canceled {
		err = nil
	}
	if rt.Tele.Enabled() {
		log.Infof("tele stat=%+v", rt.Tele.Stat())
	}
	return err
}
