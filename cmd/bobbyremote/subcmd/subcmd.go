// Support sub-commands in bobbyremote application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/internal/config"
	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
)

type Mod struct {
	Name string
	Desc string
	// args are positional arguments after the command name
	Main func(ctx context.Context, config *config.Config, args []string) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command, available: %s", Names(modules))
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s' available: %s", command, Names(modules))
	}
	return found, nil
}

func Names(modules []Mod) string {
	ns := make([]string, len(modules))
	for i, m := range modules {
		ns[i] = m.Name
	}
	sort.Strings(ns)
	return strings.Join(ns, ", ")
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
