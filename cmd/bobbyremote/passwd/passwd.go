// Package passwd manages device secrets in the credential store.
package passwd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/cmd/bobbyremote/subcmd"
	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/bobbycar-graz/bobbyremote/internal/credential"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/juju/errors"
)

var Mod = subcmd.Mod{
	Name: "passwd",
	Desc: "passwd [DEVICE] reads secret from stdin, passwd -d DEVICE deletes, passwd -l lists",
	Main: Main,
}

func Main(ctx context.Context, config *config.Config, args []string) error {
	log := log2.ContextValueLogger(ctx)
	if config.Credential.Dir == "" {
		return errors.NotValidf("config credential.dir empty")
	}
	cs, err := subcmd.OpenCredentials(log, config)
	if err != nil {
		return err
	}
	return Run(cs, config.Device.ID, args, os.Stdin, os.Stdout)
}

func Run(cs *credential.Store, defaultDevice string, args []string, in io.Reader, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "-l":
			for _, d := range cs.Devices() {
				fmt.Fprintln(out, d)
			}
			return nil
		case "-d":
			if len(args) != 2 {
				return errors.NotValidf("usage: passwd -d DEVICE")
			}
			return cs.Delete(args[1])
		}
	}

	device := defaultDevice
	if len(args) > 0 {
		device = args[0]
	}
	if device == "" {
		return errors.NotValidf("device id empty")
	}
	fmt.Fprintf(out, "secret for %s: ", device)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Annotate(err, "read secret")
	}
	return cs.Set(device, strings.TrimSpace(line))
}
