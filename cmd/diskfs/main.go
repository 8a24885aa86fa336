package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	pz "github.com/weberc2/httpeasy"

	"github.com/weberc2/diskfs/pkg/filesystem"
	"github.com/weberc2/diskfs/pkg/medium/pgmedium"
	"github.com/weberc2/diskfs/pkg/server"
	. "github.com/weberc2/diskfs/pkg/types"
)

func main() {
	app := cli.App{
		Name:        appName,
		Description: "create and inspect diskfs filesystem images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "path to the image file, or the image name in postgres",
			},
			&cli.Int64Flag{
				Name:  "offset",
				Usage: "byte offset of the filesystem within the image",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of panic, fatal, error, warn, info, debug, trace",
			},
			&cli.BoolFlag{
				Name:  "trace-medium",
				Usage: "log every medium read and write at debug level",
			},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "lay out a fresh filesystem, destroying the image",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  "size",
					Usage: "filesystem size in bytes",
				},
				&cli.Int64Flag{
					Name:  "block-size",
					Usage: "block size in bytes; a power of two",
				},
				&cli.Int64Flag{
					Name:  "bytes-per-inode",
					Usage: "filesystem bytes per allocated inode",
				},
			},
			Action: withConfig(func(c *Config, ctx *cli.Context) (err error) {
				if ctx.IsSet("size") {
					c.Size = Byte(ctx.Int64("size"))
				}
				if ctx.IsSet("block-size") {
					c.BlockSize = Byte(ctx.Int64("block-size"))
				}
				if ctx.IsSet("bytes-per-inode") {
					c.BytesPerInode = Byte(ctx.Int64("bytes-per-inode"))
				}
				m, closer, err := c.Medium(true)
				if err != nil {
					return err
				}
				defer closeInto(closer, &err)
				fsys, err := filesystem.New(m, c.Size, c.BlockSize, c.BytesPerInode)
				if err != nil {
					return err
				}
				return printJSON(fsys.Superblock())
			}),
		}, {
			Name:        "info",
			Aliases:     []string{"superblock"},
			Description: "print the superblock",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				return printJSON(fsys.Superblock())
			}),
		}, {
			Name:        "ls",
			Aliases:     []string{"list"},
			ArgsUsage:   "[PATH]",
			Description: "list a directory",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "print entries as JSON"},
			},
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path := pathArg(ctx)
				infos, err := fsys.List(path)
				if err != nil {
					return err
				}
				if ctx.Bool("json") {
					return printJSON(infos)
				}
				for _, info := range infos {
					if info.IsDir() {
						fmt.Printf("%s/\n", info.Name)
					} else {
						fmt.Println(info.Name)
					}
				}
				return nil
			}),
		}, {
			Name:        "stat",
			ArgsUsage:   "PATH",
			Description: "print an entry's inode as JSON",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				stat, err := fsys.Stat(pathArg(ctx))
				if err != nil {
					return err
				}
				return printJSON(stat)
			}),
		}, {
			Name:        "mkdir",
			ArgsUsage:   "PATH",
			Description: "create a directory",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "parents",
					Aliases: []string{"p"},
					Usage:   "create missing parents and accept existing directories",
				},
			},
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path, err := requiredPath(ctx)
				if err != nil {
					return err
				}
				if ctx.Bool("parents") {
					_, err = fsys.MkdirAll(path)
				} else {
					_, err = fsys.Mkdir(path)
				}
				return err
			}),
		}, {
			Name:        "touch",
			ArgsUsage:   "PATH",
			Description: "create an empty file unless it exists",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path, err := requiredPath(ctx)
				if err != nil {
					return err
				}
				_, err = fsys.Touch(path)
				return err
			}),
		}, {
			Name:        "write",
			ArgsUsage:   "PATH",
			Description: "replace (or append to) a file's content from --data or stdin",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "data",
					Usage: "content to write; stdin is read when unset",
				},
				&cli.BoolFlag{
					Name:  "append",
					Usage: "append instead of replacing",
				},
			},
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path, err := requiredPath(ctx)
				if err != nil {
					return err
				}
				var data []byte
				if ctx.IsSet("data") {
					data = []byte(ctx.String("data"))
				} else if data, err = ioutil.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				if ctx.Bool("append") {
					return fsys.AppendFile(path, data)
				}
				return fsys.WriteFile(path, data)
			}),
		}, {
			Name:        "cat",
			ArgsUsage:   "PATH",
			Description: "print a file's content",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path, err := requiredPath(ctx)
				if err != nil {
					return err
				}
				data, err := fsys.ReadFile(path)
				if err != nil {
					return err
				}
				if _, err := os.Stdout.Write(data); err != nil {
					return fmt.Errorf("writing to stdout: %w", err)
				}
				return nil
			}),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove", "delete"},
			ArgsUsage:   "PATH",
			Description: "remove a file or an empty directory",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				path, err := requiredPath(ctx)
				if err != nil {
					return err
				}
				return fsys.Remove(path)
			}),
		}, {
			Name:        "tree",
			ArgsUsage:   "[PATH]",
			Description: "render a directory tree",
			Action: withFS(func(fsys *filesystem.FileSystem, ctx *cli.Context) error {
				return fsys.Tree(os.Stdout, pathArg(ctx))
			}),
		}, {
			Name:        "serve",
			Description: "serve a read-only JSON API over the image",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "addr", Usage: "listen address"},
			},
			Action: withConfig(func(c *Config, ctx *cli.Context) (err error) {
				if ctx.IsSet("addr") {
					c.Addr = ctx.String("addr")
				}
				fsys, closer, err := c.FileSystem()
				if err != nil {
					return err
				}
				defer closeInto(closer, &err)
				log.WithField("addr", c.Addr).Info("listening")
				return http.ListenAndServe(c.Addr, pz.Register(
					pz.JSONLog(os.Stderr),
					server.New(fsys).Routes()...,
				))
			}),
		}, {
			Name:        "snapshot",
			Description: "push and pull whole images to and from S3",
			Subcommands: []*cli.Command{{
				Name:        "push",
				Description: "upload the image as a new snapshot",
				Action: withConfig(func(c *Config, ctx *cli.Context) error {
					store, err := c.Snapshots()
					if err != nil {
						return err
					}
					m, closer, err := c.Medium(false)
					if err != nil {
						return err
					}
					defer closer.Close()
					manifest, err := store.Push(imageName(c), m)
					if err != nil {
						return err
					}
					return printJSON(manifest)
				}),
			}, {
				Name:        "pull",
				Description: "overwrite the image with a snapshot (the latest by default)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "the snapshot to pull"},
				},
				Action: withConfig(func(c *Config, ctx *cli.Context) (err error) {
					store, err := c.Snapshots()
					if err != nil {
						return err
					}
					id := ctx.String("id")
					if id == "" {
						latest, err := store.Latest(imageName(c))
						if err != nil {
							return err
						}
						id = latest.ID
					}
					manifest, err := store.Manifest(imageName(c), id)
					if err != nil {
						return err
					}
					c.Size = manifest.Size
					m, closer, err := c.Medium(true)
					if err != nil {
						return err
					}
					defer closeInto(closer, &err)
					if _, err := store.Pull(imageName(c), id, m); err != nil {
						return err
					}
					return printJSON(manifest)
				}),
			}, {
				Name:        "list",
				Aliases:     []string{"ls"},
				Description: "list the image's snapshots, oldest first",
				Action: withConfig(func(c *Config, ctx *cli.Context) error {
					store, err := c.Snapshots()
					if err != nil {
						return err
					}
					manifests, err := store.List(imageName(c))
					if err != nil {
						return err
					}
					return printJSON(manifests)
				}),
			}, {
				Name:        "delete",
				Aliases:     []string{"rm"},
				Description: "delete a snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "the snapshot to delete",
						Required: true,
					},
				},
				Action: withConfig(func(c *Config, ctx *cli.Context) error {
					store, err := c.Snapshots()
					if err != nil {
						return err
					}
					return store.Delete(imageName(c), ctx.String("id"))
				}),
			}},
		}, {
			Name:        "pg",
			Description: "commands for the postgres image table",
			Subcommands: []*cli.Command{{
				Name:        "ensure",
				Aliases:     []string{"make", "create"},
				Description: "create the table if it doesn't already exist",
				Action: withPG(func(m *pgmedium.Medium, ctx *cli.Context) error {
					return m.EnsureTable()
				}),
			}, {
				Name:        "drop",
				Aliases:     []string{"delete", "destroy"},
				Description: "delete every chunk of the configured image",
				Action: withPG(func(m *pgmedium.Medium, ctx *cli.Context) error {
					return m.Drop()
				}),
			}},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withConfig(f func(*Config, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if ctx.IsSet("image") {
			c.Image = ctx.String("image")
		}
		if ctx.IsSet("offset") {
			c.Offset = Byte(ctx.Int64("offset"))
		}
		if ctx.IsSet("log-level") {
			c.LogLevel = ctx.String("log-level")
		}
		if ctx.IsSet("trace-medium") {
			c.TraceMedium = ctx.Bool("trace-medium")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		c.ConfigureLogging()
		return f(c, ctx)
	}
}

func withFS(f func(*filesystem.FileSystem, *cli.Context) error) cli.ActionFunc {
	return withConfig(func(c *Config, ctx *cli.Context) (err error) {
		fsys, closer, err := c.FileSystem()
		if err != nil {
			return err
		}
		defer closeInto(closer, &err)
		return f(fsys, ctx)
	})
}

// closeInto closes `closer`, reporting its error through `err` unless an
// earlier error is already there.
func closeInto(closer io.Closer, err *error) {
	if cerr := closer.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing medium: %w", cerr)
	}
}

func withPG(f func(*pgmedium.Medium, *cli.Context) error) cli.ActionFunc {
	return withConfig(func(c *Config, ctx *cli.Context) error {
		if c.PGDSN == "" {
			return fmt.Errorf(
				"missing required configuration: pgDSN / %s_PG_DSN",
				envVarPrefix,
			)
		}
		m, err := pgmedium.Open(c.PGDSN, c.Image, c.Offset+c.Size, c.PGChunkSize)
		if err != nil {
			return fmt.Errorf("opening postgres medium: %w", err)
		}
		defer m.Close()
		return f(m, ctx)
	})
}

func pathArg(ctx *cli.Context) string {
	if path := ctx.Args().First(); path != "" {
		return path
	}
	return "/"
}

func requiredPath(ctx *cli.Context) (string, error) {
	path := ctx.Args().First()
	if path == "" {
		return "", fmt.Errorf("%s: missing PATH argument", ctx.Command.Name)
	}
	return path, nil
}

// imageName is the snapshot key for the configured image: the file's base
// name without extension, or the postgres image name as is.
func imageName(c *Config) string {
	name := c.Image
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling to JSON: %w", err)
	}
	if _, err := fmt.Printf("%s\n", data); err != nil {
		return fmt.Errorf("writing JSON to stdout: %w", err)
	}
	return nil
}
