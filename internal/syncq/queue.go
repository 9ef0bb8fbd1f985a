// Package syncq keeps score submissions made while the API was unreachable so the CLI
// can replay them later.
package syncq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MaxAttempts bounds how many failed replays a queued command survives.
const MaxAttempts = 8

// Command is an API call recorded while offline and replayed by `holdco sync`.
type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
	Attempts       int            `json:"attempts,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
}

// Failed records one more failed replay. ok is false once the command has used up
// MaxAttempts and should be discarded.
func (c Command) Failed(err error) (next Command, ok bool) {
	c.Attempts++
	if err != nil {
		c.LastError = err.Error()
	}
	return c, c.Attempts < MaxAttempts
}

// Dir is the CLI's state directory. Overridable in tests.
var Dir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".holdco"), nil
}

var now = func() time.Time { return time.Now().UTC() }

type queueFile struct {
	Version  int       `json:"version"`
	Commands []Command `json:"commands"`
}

const queueVersion = 1

func queuePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return []Command{}, nil
	case err != nil:
		return nil, err
	case len(raw) == 0:
		return []Command{}, nil
	}
	var f queueFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("read queue %s: %w", path, err)
	}
	if f.Version > queueVersion {
		return nil, fmt.Errorf("queue %s has version %d, this holdco understands %d", path, f.Version, queueVersion)
	}
	if f.Commands == nil {
		f.Commands = []Command{}
	}
	return f.Commands, nil
}

// Save replaces the queue. The file is written beside the old one and renamed over it
// so an interrupted sync never leaves a truncated queue.
func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if commands == nil {
		commands = []Command{}
	}
	raw, err := json.MarshalIndent(queueFile{Version: queueVersion, Commands: commands}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "queue-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Push appends cmd unless a command with the same idempotency key is already queued.
func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	for _, existing := range commands {
		if cmd.IdempotencyKey != "" && existing.IdempotencyKey == cmd.IdempotencyKey {
			return nil
		}
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = now()
	}
	return Save(append(commands, cmd))
}
