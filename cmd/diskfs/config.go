package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/weberc2/diskfs/pkg/filesystem"
	"github.com/weberc2/diskfs/pkg/medium"
	"github.com/weberc2/diskfs/pkg/medium/pgmedium"
	"github.com/weberc2/diskfs/pkg/objectstore"
	"github.com/weberc2/diskfs/pkg/snapshot"
	. "github.com/weberc2/diskfs/pkg/types"
)

const (
	envVarPrefix = "DISKFS"
	appName      = "diskfs"
)

type Config struct {
	Image          string `envconfig:"DISKFS_IMAGE"           yaml:"image"`
	Size           Byte   `envconfig:"DISKFS_SIZE"            yaml:"size"`
	BlockSize      Byte   `envconfig:"DISKFS_BLOCK_SIZE"      yaml:"blockSize"`
	BytesPerInode  Byte   `envconfig:"DISKFS_BYTES_PER_INODE" yaml:"bytesPerInode"`
	Offset         Byte   `envconfig:"DISKFS_OFFSET"          yaml:"offset"`
	LogLevel       string `envconfig:"DISKFS_LOG_LEVEL"       yaml:"logLevel"`
	LogFormat      string `envconfig:"DISKFS_LOG_FORMAT"      yaml:"logFormat"`
	TraceMedium    bool   `envconfig:"DISKFS_TRACE_MEDIUM"    yaml:"traceMedium"`
	Addr           string `envconfig:"DISKFS_ADDR"            yaml:"addr"`
	SnapshotBucket string `envconfig:"DISKFS_SNAPSHOT_BUCKET" yaml:"snapshotBucket"`
	SnapshotPrefix string `envconfig:"DISKFS_SNAPSHOT_PREFIX" yaml:"snapshotPrefix"`
	AWSRegion      string `envconfig:"DISKFS_AWS_REGION"      yaml:"awsRegion"`
	S3Endpoint     string `envconfig:"DISKFS_S3_ENDPOINT"     yaml:"s3Endpoint"`
	PGDSN          string `envconfig:"DISKFS_PG_DSN"          yaml:"pgDSN"`
	PGChunkSize    Byte   `envconfig:"DISKFS_PG_CHUNK_SIZE"   yaml:"pgChunkSize"`
}

// DefaultConfig is the starting point that the config file and then the
// environment are layered over. envconfig `default` tags are not used
// because they would clobber values from the file.
func DefaultConfig() Config {
	return Config{
		Image:          "diskfs.img",
		Size:           10 * 1024 * 1024,
		BlockSize:      4096,
		BytesPerInode:  4096,
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           "127.0.0.1:8080",
		SnapshotPrefix: "snapshots",
		PGChunkSize:    pgmedium.DefaultChunkSize,
	}
}

func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv(envVarPrefix + "_CONFIG_FILE"))
}

func loadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}

	c := DefaultConfig()
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Image == "" {
			return "image", "IMAGE"
		}
		if c.BlockSize <= 0 {
			return "blockSize", "BLOCK_SIZE"
		}
		if c.BytesPerInode <= 0 {
			return "bytesPerInode", "BYTES_PER_INODE"
		}
		if c.Offset < 0 {
			return "offset", "OFFSET"
		}
		if c.PGDSN != "" && c.PGChunkSize <= 0 {
			return "pgChunkSize", "PG_CHUNK_SIZE"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing or invalid configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf(
			"invalid log format `%s`: wanted `text` or `json`",
			c.LogFormat,
		)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stderr)
}

// Medium opens the configured medium. With `create` set, a file image is
// (re)created at `Offset+Size` bytes and a Postgres image gets its table.
// The returned closer releases the underlying handle.
func (c *Config) Medium(create bool) (medium.Medium, io.Closer, error) {
	var (
		m      medium.Medium
		closer io.Closer
		size   Byte
	)

	if c.PGDSN != "" {
		pg, err := pgmedium.Open(c.PGDSN, c.Image, c.Offset+c.Size, c.PGChunkSize)
		if err != nil {
			return nil, nil, err
		}
		if create {
			if err := pg.EnsureTable(); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		m, closer, size = pg, pg, pg.Size()
	} else {
		var (
			f   *medium.File
			err error
		)
		if create {
			f, err = medium.CreateFile(c.Image, c.Offset+c.Size)
		} else {
			f, err = medium.OpenFile(c.Image)
		}
		if err != nil {
			return nil, nil, err
		}
		if size, err = f.Size(); err != nil {
			f.Close()
			return nil, nil, err
		}
		m, closer = f, syncCloser{f}
	}

	if c.Offset > 0 {
		if c.Offset >= size {
			closer.Close()
			return nil, nil, fmt.Errorf(
				"offset `%d` is beyond the end of the medium (`%d` bytes)",
				c.Offset,
				size,
			)
		}
		m = medium.NewWindow(m, c.Offset, size-c.Offset)
	}

	if c.TraceMedium {
		m = medium.NewLogged(m, log.WithField("image", c.Image))
	}
	return m, closer, nil
}

// FileSystem loads the filesystem on the configured medium.
func (c *Config) FileSystem() (*filesystem.FileSystem, io.Closer, error) {
	m, closer, err := c.Medium(false)
	if err != nil {
		return nil, nil, err
	}
	fsys, err := filesystem.Load(m)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return fsys, closer, nil
}

func (c *Config) Snapshots() (*snapshot.Store, error) {
	if c.SnapshotBucket == "" {
		return nil, fmt.Errorf(
			"missing required configuration: snapshotBucket / %s_SNAPSHOT_BUCKET",
			envVarPrefix,
		)
	}
	s3, err := objectstore.NewS3ObjectStore(c.AWSRegion, c.S3Endpoint)
	if err != nil {
		return nil, err
	}
	return &snapshot.Store{
		Objects: s3,
		Bucket:  c.SnapshotBucket,
		Prefix:  c.SnapshotPrefix,
	}, nil
}

type syncCloser struct{ f *medium.File }

func (sc syncCloser) Close() error {
	if err := sc.f.Sync(); err != nil {
		sc.f.Close()
		return err
	}
	return sc.f.Close()
}
