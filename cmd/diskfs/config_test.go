package main

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diskfs.yaml")
	if err := ioutil.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}
	return path
}

func TestLoadConfigLayering(t *testing.T) {
	path := writeConfigFile(t, "image: /tmp/x.img\nblockSize: 1024\nlogFormat: json\n")
	t.Setenv("DISKFS_BLOCK_SIZE", "2048")
	t.Setenv("DISKFS_PG_DSN", "postgres://localhost/diskfs")

	c, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig(): unexpected err: %v", err)
	}

	// environment beats the file
	if c.BlockSize != 2048 {
		t.Fatalf("BlockSize: wanted `2048`; found `%d`", c.BlockSize)
	}
	// the file beats the defaults
	if c.Image != "/tmp/x.img" || c.LogFormat != "json" {
		t.Fatalf("loadConfig(): file values lost: `%+v`", c)
	}
	// defaults fill the rest
	if c.BytesPerInode != 4096 || c.Addr != "127.0.0.1:8080" ||
		c.PGChunkSize != 64*1024 {
		t.Fatalf("loadConfig(): defaults lost: `%+v`", c)
	}
	if c.PGDSN != "postgres://localhost/diskfs" {
		t.Fatalf("PGDSN: wanted `postgres://localhost/diskfs`; found `%s`", c.PGDSN)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(): unexpected err: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	c, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig(): unexpected err: %v", err)
	}
	if *c != DefaultConfig() {
		t.Fatalf("loadConfig(): wanted defaults; found `%+v`", c)
	}
}

func TestLoadConfigStrict(t *testing.T) {
	path := writeConfigFile(t, "imagePath: /tmp/x.img\n")
	if _, err := loadConfig(path); err == nil {
		t.Fatal("loadConfig(): wanted error for unknown key; found `nil`")
	}
}

func TestValidate(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		modify func(*Config)
		wanted string
	}{
		{"missing-image", func(c *Config) { c.Image = "" }, "DISKFS_IMAGE"},
		{"zero-block-size", func(c *Config) { c.BlockSize = 0 }, "DISKFS_BLOCK_SIZE"},
		{"negative-offset", func(c *Config) { c.Offset = -1 }, "DISKFS_OFFSET"},
		{"log-format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"log-level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{
			"pg-chunk-size",
			func(c *Config) { c.PGDSN = "x"; c.PGChunkSize = 0 },
			"DISKFS_PG_CHUNK_SIZE",
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			c := DefaultConfig()
			testCase.modify(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), testCase.wanted) {
				t.Fatalf(
					"Validate(): wanted error containing `%s`; found `%v`",
					testCase.wanted,
					err,
				)
			}
		})
	}
}

func TestImageName(t *testing.T) {
	for _, testCase := range []struct {
		image  string
		wanted string
	}{
		{"diskfs.img", "diskfs"},
		{"/var/lib/images/boot.img.bak", "boot"},
		{"pg-image", "pg-image"},
		{".hidden", ".hidden"},
	} {
		c := Config{Image: testCase.image}
		if found := imageName(&c); found != testCase.wanted {
			t.Fatalf(
				"imageName(`%s`): wanted `%s`; found `%s`",
				testCase.image,
				testCase.wanted,
				found,
			)
		}
	}
}
