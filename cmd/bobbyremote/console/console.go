// Package console is the interactive operator shell for one device session.
package console

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/bobbycar-graz/bobbyremote/helpers/cli"
	"github.com/bobbycar-graz/bobbyremote/internal/livedata"
	"github.com/bobbycar-graz/bobbyremote/internal/nvs"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/c-bata/go-prompt"
	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
)

const DefaultScreenStep = 4

// Controller is the part of session.Client used by console.
type Controller interface {
	Connect()
	Disconnect()
	Retry()
	State() session.State
	Snapshot() (session.Snapshot, bool)
	Progress() nvs.Progress
	Entries() []nvs.Entry
	Entry(key string) (nvs.Entry, bool)
	RefreshConfig(key string)
	SetConfig(key, input string) error
	ResetConfig(key string) error
	Reload()
	SetVisibleKeys(keys []string)
	PressButton(b session.Button)
	PressRawButton(b session.Button)
	Popup(message string)
	Livedata() []livedata.Row
	ExportConfig() ([]byte, error)
	ScreenImage() *image.RGBA
	ScreenString(step int) string
	LastReceived() time.Time
}

var _ Controller = (*session.Client)(nil)

type command struct {
	name   string
	args   string
	desc   string
	keyArg bool // argument completes with configuration keys
	split  int  // last of split args keeps raw rest of line
	run    func(c *Console, args []string) error
}

type Console struct {
	ctl      Controller
	out      io.Writer
	commands []command
	quit     uint32
}

func New(ctl Controller, out io.Writer) *Console {
	c := &Console{ctl: ctl, out: out}
	c.commands = []command{
		{name: "help", desc: "list commands", run: (*Console).help},
		{name: "connect", desc: "open session", run: func(c *Console, _ []string) error { c.ctl.Connect(); return nil }},
		{name: "disconnect", desc: "close session", run: func(c *Console, _ []string) error { c.ctl.Disconnect(); return nil }},
		{name: "retry", desc: "reconnect now", run: func(c *Console, _ []string) error { c.ctl.Retry(); return nil }},
		{name: "status", desc: "session and device status", run: (*Console).status},
		{name: "config", args: "[prefix]", desc: "list configuration", run: (*Console).config, keyArg: true},
		{name: "get", args: "KEY", desc: "refresh and show one entry", run: (*Console).get, keyArg: true},
		{name: "set", args: "KEY VALUE", desc: "change entry, null clears optional", run: (*Console).set, keyArg: true, split: 2},
		{name: "reset", args: "KEY", desc: "restore default value", run: (*Console).reset, keyArg: true},
		{name: "reload", desc: "download whole configuration again", run: func(c *Console, _ []string) error { c.ctl.Reload(); return nil }},
		{name: "watch", args: "[KEY...]", desc: "poll these entries, empty stops", run: (*Console).watch, keyArg: true},
		{name: "btn", args: "left|right|up|down", desc: "press logical button", run: (*Console).button},
		{name: "rawbtn", args: "N", desc: "press raw button", run: (*Console).rawButton},
		{name: "popup", args: "MESSAGE", desc: "show message on device", run: (*Console).popup, split: 1},
		{name: "live", desc: "live data table", run: (*Console).live},
		{name: "screen", args: "[STEP] | save FILE", desc: "remote screen picture", run: (*Console).screen},
		{name: "export", args: "[FILE]", desc: "configuration as JSON", run: (*Console).export},
		{name: "quit", desc: "exit", run: func(c *Console, _ []string) error { atomic.StoreUint32(&c.quit, 1); return nil }},
	}
	return c
}

// Done is true after quit command.
func (c *Console) Done() bool { return atomic.LoadUint32(&c.quit) != 0 }

func (c *Console) Execute(line string) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}
	cmd := c.find(words[0])
	if cmd == nil {
		c.printf("error: unknown command %q, try help\n", words[0])
		return
	}
	args := words[1:]
	if cmd.split > 0 {
		rest := strings.TrimLeftFunc(line, unicode.IsSpace)[len(words[0]):]
		args = splitRest(rest, cmd.split)
	}
	if err := cmd.run(c, args); err != nil {
		c.printf("error: %s\n", err)
	}
}

func (c *Console) Complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	words := strings.Fields(before)
	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(before, " ")) {
		suggests := make([]prompt.Suggest, len(c.commands))
		for i, cmd := range c.commands {
			suggests[i] = prompt.Suggest{Text: cmd.name, Description: cmd.desc}
		}
		return cli.Filter(suggests, d)
	}

	cmd := c.find(words[0])
	switch {
	case cmd == nil:
		return nil
	case cmd.name == "btn":
		return cli.Filter([]prompt.Suggest{{Text: "left"}, {Text: "right"}, {Text: "up"}, {Text: "down"}}, d)
	case cmd.keyArg:
		arg := len(words) - 1
		if strings.HasSuffix(before, " ") {
			arg++
		}
		// only watch takes many keys
		if arg > 1 && cmd.name != "watch" {
			return nil
		}
		es := c.ctl.Entries()
		suggests := make([]prompt.Suggest, 0, len(es))
		for _, e := range es {
			suggests = append(suggests, prompt.Suggest{Text: e.Name, Description: nvs.FormatValue(e.Value)})
		}
		return cli.Filter(suggests, d)
	}
	return nil
}

// splitRest is strings.Fields limited to n results.
func splitRest(s string, n int) []string {
	var out []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 || len(out) == n-1 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i:]
	}
}

func (c *Console) find(name string) *command {
	for i := range c.commands {
		if c.commands[i].name == name {
			return &c.commands[i]
		}
	}
	return nil
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) help([]string) error {
	for _, cmd := range c.commands {
		usage := cmd.name
		if cmd.args != "" {
			usage += " " + cmd.args
		}
		c.printf("  %-28s %s\n", usage, cmd.desc)
	}
	return nil
}

func (c *Console) status([]string) error {
	c.printf("state: %s\n", c.ctl.State())
	if t := c.ctl.LastReceived(); !t.IsZero() {
		c.printf("last frame: %s\n", humanize.Time(t))
	}
	if p := c.ctl.Progress(); p.Known() {
		c.printf("config: %d/%d entries\n", p.Received, p.Total)
	} else if p.Received > 0 {
		c.printf("config: %d entries\n", p.Received)
	}

	snap, ok := c.ctl.Snapshot()
	if !ok {
		return nil
	}
	c.printf("device: name=%s ip=%s screen=%dx%d\n", snap.Name, snap.IP, snap.Resolution.X, snap.Resolution.Y)
	if snap.PingMillis >= 0 {
		c.printf("ping: %dms\n", snap.PingMillis)
	}
	if info := snap.Info; info != nil {
		c.printf("uptime: %s\n", (time.Duration(info.Uptime) * time.Microsecond).Truncate(time.Second))
		if info.Percentage != nil {
			c.printf("battery: %.1f%%\n", *info.Percentage)
		}
		if info.Voltage != nil {
			c.printf("voltage: %.2fV\n", *info.Voltage)
		}
		if info.Current != nil {
			c.printf("current: %.2fA\n", *info.Current)
		}
		if info.TempFront != nil && info.TempBack != nil {
			c.printf("temperature: front=%.1f back=%.1f\n", *info.TempFront, *info.TempBack)
		}
		if info.Git.Commit != "" {
			c.printf("firmware: %s@%s\n", info.Git.Branch, info.Git.Commit)
		}
		if info.Wifi.SSID != "" {
			c.printf("wifi: ssid=%s rssi=%d\n", info.Wifi.SSID, info.Wifi.RSSI)
		}
	}
	if ota := snap.Ota; ota != nil {
		if pct := ota.Percent(); pct >= 0 {
			c.printf("ota: %s %s/%s %.0f%%\n", ota.Status,
				humanize.Bytes(uint64(ota.Progress)), humanize.Bytes(uint64(ota.TotalSize)), pct)
		} else {
			c.printf("ota: %s\n", ota.Status)
		}
	}
	if ap := snap.AccessPoint; ap != nil {
		c.printf("access point: enabled=%t name=%s ip=%s channel=%d auth=%s\n",
			ap.Enabled, ap.Name, ap.IP, ap.Channel, ap.AuthMode)
	}
	return nil
}

func (c *Console) config(args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	es := c.ctl.Entries()
	if len(es) == 0 {
		return errors.NotFoundf("configuration, state=%s", c.ctl.State())
	}
	sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
	for _, e := range es {
		if strings.HasPrefix(e.Name, prefix) {
			c.printEntry(e)
		}
	}
	return nil
}

func (c *Console) get(args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("usage: get KEY")
	}
	c.ctl.RefreshConfig(args[0])
	e, ok := c.ctl.Entry(args[0])
	if !ok {
		return errors.NotFoundf("key=%s", args[0])
	}
	c.printEntry(e)
	return nil
}

func (c *Console) printEntry(e nvs.Entry) {
	mark := " "
	if e.Touched {
		mark = "*"
	}
	value := nvs.FormatValue(e.Value)
	if name, ok := e.EnumName(); ok {
		value += " (" + name + ")"
	}
	c.printf("%s %s = %s  [%s default=%s]\n", mark, e.Name, value, e.Type, nvs.FormatValue(e.Default))
}

func (c *Console) set(args []string) error {
	if len(args) < 2 {
		return errors.NotValidf("usage: set KEY VALUE")
	}
	return c.ctl.SetConfig(args[0], args[1])
}

func (c *Console) reset(args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("usage: reset KEY")
	}
	return c.ctl.ResetConfig(args[0])
}

func (c *Console) watch(args []string) error {
	c.ctl.SetVisibleKeys(args)
	if len(args) == 0 {
		c.printf("watch stopped\n")
	}
	return nil
}

func (c *Console) button(args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("usage: btn left|right|up|down")
	}
	b, err := session.ParseButton(args[0])
	if err != nil {
		return err
	}
	c.ctl.PressButton(b)
	return nil
}

func (c *Console) rawButton(args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("usage: rawbtn N")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 {
		return errors.NotValidf("button=%q", args[0])
	}
	c.ctl.PressRawButton(session.Button(i))
	return nil
}

func (c *Console) popup(args []string) error {
	if len(args) == 0 {
		return errors.NotValidf("usage: popup MESSAGE")
	}
	c.ctl.Popup(args[0])
	return nil
}

func (c *Console) live([]string) error {
	rows := c.ctl.Livedata()
	if len(rows) == 0 {
		c.printf("no live data\n")
		return nil
	}
	width := 0
	for _, r := range rows {
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}
	for _, r := range rows {
		c.printf("%-*s %s\n", width+1, r.Label+":", nvs.FormatValue(r.Value))
	}
	return nil
}

func (c *Console) screen(args []string) error {
	if len(args) >= 1 && args[0] == "save" {
		if len(args) != 2 {
			return errors.NotValidf("usage: screen save FILE")
		}
		img := c.ctl.ScreenImage()
		if img == nil {
			return errors.NotFoundf("screen")
		}
		return errors.Annotate(savePNG(args[1], img), "screen save")
	}

	step := DefaultScreenStep
	if len(args) == 1 {
		var err error
		if step, err = strconv.Atoi(args[0]); err != nil || step < 1 {
			return errors.NotValidf("step=%q", args[0])
		}
	}
	s := c.ctl.ScreenString(step)
	if s == "" {
		return errors.NotFoundf("screen")
	}
	c.printf("%s", s)
	return nil
}

func (c *Console) export(args []string) error {
	b, err := c.ctl.ExportConfig()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		c.printf("%s\n", b)
		return nil
	}
	if err = ioutil.WriteFile(args[0], b, 0644); err != nil {
		return errors.Annotate(err, "export")
	}
	c.printf("exported %s to %s\n", humanize.Bytes(uint64(len(b))), args[0])
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
