package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SKINLENS_TEST_NAME", "estuary")
	p := writeFile(t, "name: ${SKINLENS_TEST_NAME}\n")

	s := &sample{Level: 3}
	if err := Load(p, s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "estuary" {
		t.Errorf("name = %q", s.Name)
	}
	if s.Level != 3 {
		t.Errorf("default level overwritten: %d", s.Level)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	p := writeFile(t, "level: 1\n")
	err := Load(p, &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeFile(t, "name: [unclosed\n")
	if err := Load(p, &sample{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := &sample{Name: "default"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoadOptional_MissingFileStillValidated(t *testing.T) {
	err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &sample{})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
