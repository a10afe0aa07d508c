// e2cat - read-only inspector for ext2 volumes
//
// Usage:
//
//	e2cat [--device D] <absolute-path> inode   print the file's inode metadata
//	e2cat [--device D] <absolute-path> data    print file contents or directory listing
//	e2cat [--device D] info                    print a superblock summary
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/e2tools/e2cat/cmd"
	"github.com/e2tools/e2cat/detect"
	"github.com/e2tools/e2cat/fsys/ext2"
)

// errBadRequest is returned when the request keyword is neither inode nor data.
var errBadRequest = errors.New("invalid request")

func main() {
	logrus.SetOutput(os.Stderr)
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logrus.Fatalf("%s: %v", appName, err)
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "inspect files on an ext2 volume",
		ArgsUsage: "<absolute-path> <request>",
		Writer:    stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "block device or image file holding the ext2 volume",
				EnvVars: []string{"E2CAT_DEVICE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file",
				EnvVars: []string{"E2CAT_CONFIG_FILE"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "print a summary of the volume's superblock",
				Action: func(c *cli.Context) error {
					f, err := openVolume(c)
					if err != nil {
						return err
					}
					defer f.Close()
					return cmd.Info(f, stdout)
				},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				cli.ShowAppHelp(c)
				return fmt.Errorf("expected <absolute-path> <request>, got %d arguments", c.NArg())
			}
			path := c.Args().Get(0)
			request := c.Args().Get(1)
			if request != "inode" && request != "data" {
				return fmt.Errorf("%w: %q (want inode or data)", errBadRequest, request)
			}

			f, err := openVolume(c)
			if err != nil {
				return err
			}
			defer f.Close()

			switch request {
			case "inode":
				return cmd.Inode(f, path, stdout)
			default:
				return cmd.Data(f, path, stdout)
			}
		},
	}
}

// openVolume opens the configured device and mounts the ext2 engine on it.
// The returned FS owns the device handle; Close releases it.
func openVolume(c *cli.Context) (*ext2.FS, error) {
	cfg, err := LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	device := c.String("device")
	if device == "" {
		device = cfg.Device
	}

	file, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}

	size, err := deviceSize(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("sizing device: %w", err)
	}

	variant, err := detect.Detect(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	logrus.Debugf("device %s: %d bytes, detected %s", device, size, variant)
	if variant == detect.Ext3 || variant == detect.Ext4 {
		logrus.Warnf("volume is %s; reading with ext2 semantics only", variant)
	}

	f, err := ext2.Open(file, size)
	if err != nil {
		file.Close()
		return nil, err
	}
	return f, nil
}

// deviceSize returns the byte length of a file or block device. Regular
// files report it through Stat; block devices need a seek to the end.
func deviceSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode().IsRegular() {
		return info.Size(), nil
	}
	return f.Seek(0, io.SeekEnd)
}
