package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigRoundtrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	conf := &Config{Count: 7, Flavour: "intel", Emulate: true}
	if err := createConfigPath(); err != nil {
		t.Fatal(err)
	}
	if err := SaveConfig(conf); err != nil {
		t.Fatal(err)
	}

	loaded := LoadConfig()
	if loaded.Count != 7 || loaded.Flavour != "intel" || !loaded.Emulate {
		t.Errorf("loaded config %+v does not match saved config %+v", loaded, conf)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	conf := LoadConfig()
	if conf.Count != 5 {
		t.Errorf("default count = %d, want 5", conf.Count)
	}
	if conf.Flavour != "gnu" {
		t.Errorf("default flavour = %q, want gnu", conf.Flavour)
	}

	p, err := GetConfigFilePath(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != configFile {
		t.Errorf("unexpected config path %q", p)
	}
	if _, err := os.Stat(filepath.Dir(p)); err != nil {
		t.Errorf("config directory was not created: %v", err)
	}
}
