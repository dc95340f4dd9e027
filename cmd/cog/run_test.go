package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogflow/cog/builtin/script"
)

func TestSeedStore(t *testing.T) {
	runInputJSON = `{"count": 2, "name": "ada"}`
	runSetValues = []string{"env=prod", "region=eu"}
	defer func() {
		runInputJSON = ""
		runSetValues = nil
	}()

	shared, err := seedStore()
	if err != nil {
		t.Fatalf("seedStore() error = %v", err)
	}

	if got, _ := shared.Get("count"); got != float64(2) {
		t.Errorf("count = %v, want 2", got)
	}
	if got, _ := shared.Get("name"); got != "ada" {
		t.Errorf("name = %v, want ada", got)
	}
	if got, _ := shared.Get("env"); got != "prod" {
		t.Errorf("env = %v, want prod", got)
	}
	if got, _ := shared.Get("region"); got != "eu" {
		t.Errorf("region = %v, want eu", got)
	}
}

func TestSeedStoreRejectsBadInput(t *testing.T) {
	runInputJSON = `not json`
	defer func() { runInputJSON = "" }()

	if _, err := seedStore(); err == nil {
		t.Error("seedStore() error = nil, want parse error")
	}
}

func TestSeedStoreRejectsBadSet(t *testing.T) {
	runSetValues = []string{"novalue"}
	defer func() { runSetValues = nil }()

	if _, err := seedStore(); err == nil {
		t.Error("seedStore() error = nil, want key=value error")
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte(`
name: ok
start: hello
nodes:
  - name: hello
    type: echo
    config:
      message: hi
`), 0o600); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(`
name: broken
start: missing
nodes:
  - name: hello
    type: echo
`), 0o600); err != nil {
		t.Fatal(err)
	}

	manager := script.NewManager(filepath.Join(dir, "scripts"), nil)
	if err := manager.Discover(context.Background()); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if err := validateFile(good, manager); err != nil {
		t.Errorf("validateFile(good) error = %v", err)
	}
	if err := validateFile(bad, manager); err == nil {
		t.Error("validateFile(bad) error = nil, want unknown start node")
	}
}
