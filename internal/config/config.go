// Package config reads HCL configuration with includes.
package config

import (
	"path/filepath"
	"strings"

	"github.com/bobbycar-graz/bobbyremote/helpers"
	"github.com/bobbycar-graz/bobbyremote/internal/session"
	"github.com/bobbycar-graz/bobbyremote/internal/tele"
	"github.com/bobbycar-graz/bobbyremote/internal/transport"
	"github.com/bobbycar-graz/bobbyremote/log2"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
)

type Config struct { //nolint:maligned
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []Source `hcl:"include"`

	LogDebug bool `hcl:"log_debug"`

	Device struct {
		ID string `hcl:"id"`
		// used when credential store has no secret for ID
		Secret string `hcl:"secret"`
	} `hcl:"device"`

	Gateway struct {
		URL             string `hcl:"url"`
		DialTimeoutSec  int    `hcl:"dial_timeout_sec"`
		WriteTimeoutSec int    `hcl:"write_timeout_sec"`
		Insecure        bool   `hcl:"insecure"`
	} `hcl:"gateway"`

	Session struct {
		ReauthMillis         int      `hcl:"reauth_ms"`
		RefreshMillis        int      `hcl:"refresh_ms"`
		RefreshStaggerMillis int      `hcl:"refresh_stagger_ms"`
		InfoMillis           int      `hcl:"info_ms"`
		OtaMillis            int      `hcl:"ota_ms"`
		VisibleKeys          []string `hcl:"visible_keys"`
	} `hcl:"session"`

	Credential struct {
		Dir string `hcl:"dir"`
	} `hcl:"credential"`

	Display struct {
		// Linux framebuffer device to mirror remote screen, e.g. /dev/fb1
		Framebuffer string `hcl:"framebuffer"`
	} `hcl:"display"`

	Tele tele.Config `hcl:"tele"`
}

type Source struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) Intervals() session.Intervals {
	d := session.DefaultIntervals()
	s := c.Session
	return session.Intervals{
		Reauth:         helpers.IntMillisecondDefault(s.ReauthMillis, d.Reauth),
		Refresh:        helpers.IntMillisecondDefault(s.RefreshMillis, d.Refresh),
		RefreshStagger: helpers.IntMillisecondDefault(s.RefreshStaggerMillis, d.RefreshStagger),
		Info:           helpers.IntMillisecondDefault(s.InfoMillis, d.Info),
		Ota:            helpers.IntMillisecondDefault(s.OtaMillis, d.Ota),
		DumpLag:        d.DumpLag,
	}
}

func (c *Config) Transport() transport.Config {
	return transport.Config{
		URL:             c.Gateway.URL,
		DialTimeoutSec:  c.Gateway.DialTimeoutSec,
		WriteTimeoutSec: c.Gateway.WriteTimeoutSec,
		Insecure:        c.Gateway.Insecure,
	}
}

// Validate checks what every session needs.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if strings.TrimSpace(c.Device.ID) == "" {
		errs = append(errs, errors.NotValidf("config device.id empty"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.NotValidf("config gateway.url empty"))
	}
	for _, iv := range []struct {
		name string
		v    int
	}{
		{"session.reauth_ms", c.Session.ReauthMillis},
		{"session.refresh_ms", c.Session.RefreshMillis},
		{"session.info_ms", c.Session.InfoMillis},
		{"session.ota_ms", c.Session.OtaMillis},
	} {
		if iv.v < 0 {
			errs = append(errs, errors.NotValidf("config %s=%d", iv.name, iv.v))
		}
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source Source, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []Source
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func Read(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error config.Read() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, Source{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}
