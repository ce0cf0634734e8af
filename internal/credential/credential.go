// Package credential keeps per-device shared secrets.
// Secrets are persisted with extremofile (checksummed main + backup copy),
// so a torn write on power loss keeps the previous set.
package credential

import (
	"bytes"
	"hash/crc64"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bobbycar-graz/bobbyremote/log2"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"github.com/temoto/extremofile"
)

// extremofile rewrites files in place without truncating,
// so stored payload never shrinks, JSON is padded with spaces.
const (
	padBlock  = 256
	checkSize = crc64.Size
)

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

type Store struct {
	mu      sync.RWMutex
	log     *log2.Log
	storage storage
	files   []string
	secrets map[string]string
	// not persisted, from configuration
	static map[string]string
}

// New with empty dir keeps secrets in memory only.
func New(log *log2.Log, dir string) *Store {
	s := &Store{
		log:     log,
		secrets: make(map[string]string),
		static:  make(map[string]string),
	}
	if dir != "" {
		s.storage = extremofile.New(extremofile.Config{
			Dir:        dir,
			FilePrefix: "credentials.",
			DirPerm:    0700,
			FilePerm:   0600,
		})
		s.files = []string{
			filepath.Join(dir, "credentials.v1.main"),
			filepath.Join(dir, "credentials.v1.backup"),
		}
	}
	return s
}

func (s *Store) Load() error {
	if s.storage == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.storage.Read()
	if b == nil {
		return errors.Annotate(err, "credential load")
	}
	if err != nil {
		s.log.Errorf("credential ignore non-critical storage err=%v", err)
	}
	m := make(map[string]string)
	if err = jsoniter.Unmarshal(b, &m); err != nil {
		return errors.Annotate(err, "credential load")
	}
	s.secrets = m
	s.log.Debugf("credential loaded devices=%d", len(m))
	return nil
}

// SetStatic adds a secret from configuration. Persisted secrets take precedence.
func (s *Store) SetStatic(deviceID, secret string) {
	s.mu.Lock()
	s.static[deviceID] = secret
	s.mu.Unlock()
}

func (s *Store) Secret(deviceID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if secret, ok := s.secrets[deviceID]; ok {
		return secret, true
	}
	secret, ok := s.static[deviceID]
	return secret, ok
}

func (s *Store) Set(deviceID, secret string) error {
	if deviceID == "" {
		return errors.NotValidf("empty device id")
	}
	if secret == "" {
		return errors.NotValidf("empty secret for device=%s", deviceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.secrets[deviceID]
	s.secrets[deviceID] = secret
	if err := s.store(); err != nil {
		if had {
			s.secrets[deviceID] = prev
		} else {
			delete(s.secrets, deviceID)
		}
		return err
	}
	return nil
}

func (s *Store) Delete(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.secrets[deviceID]
	if !had {
		return errors.NotFoundf("credential device=%s", deviceID)
	}
	delete(s.secrets, deviceID)
	if err := s.store(); err != nil {
		s.secrets[deviceID] = prev
		return err
	}
	return nil
}

// Devices with persisted secret, sorted.
func (s *Store) Devices() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.secrets))
	for id := range s.secrets {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *Store) store() error {
	if s.storage == nil {
		return nil
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s.secrets)
	if err == nil {
		_, err = s.storage.Write(s.pad(b))
	}
	return errors.Annotate(err, "credential store")
}

func (s *Store) pad(b []byte) []byte {
	size := (len(b) + padBlock - 1) / padBlock * padBlock
	for _, path := range s.files {
		if fi, err := os.Stat(path); err == nil && int(fi.Size())-checkSize > size {
			size = int(fi.Size()) - checkSize
		}
	}
	if size <= len(b) {
		return b
	}
	return append(b, bytes.Repeat([]byte{' '}, size-len(b))...)
}
