// Command mkfs formats a new SFFS image file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"

	"github.com/mejjete/SFFS"
)

// envDefaults holds mkfs's environment-variable overrides, layered under
// explicit CLI flags. SFFS_BLOCK_SIZE and SFFS_INODE_RATIO let a CI
// pipeline pin geometry without touching the invocation itself.
type envDefaults struct {
	BlockSize  uint32 `envconfig:"SFFS_BLOCK_SIZE"`
	InodeRatio uint32 `envconfig:"SFFS_INODE_RATIO"`
}

func main() {
	log.SetFlags(0)

	var env envDefaults
	if err := envconfig.Process("", &env); err != nil {
		log.Fatalf("mkfs: reading environment: %v", err)
	}

	app := &cli.App{
		Name:      "mkfs.sffs",
		Usage:     "format a new SFFS image",
		ArgsUsage: "IMAGE",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "size-mb", Usage: "image size in megabytes", Required: true},
			&cli.UintFlag{Name: "block-size", Usage: "block size in bytes", Value: uint(env.BlockSize)},
			&cli.UintFlag{Name: "inode-ratio", Usage: "bytes per inode", Value: uint(env.InodeRatio)},
			&cli.UintFlag{Name: "max-inode-list", Usage: "cap on inode-list records per file, primary included (0 = uncapped)", Value: sffs.MaxInodeListDefault},
			&cli.UintFlag{Name: "prealloc-blocks", Usage: "extra data blocks to preallocate per regular file (0 = disabled)"},
			&cli.UintFlag{Name: "prealloc-dir-blocks", Usage: "extra data blocks to preallocate per directory (0 = disabled)"},
			&cli.BoolFlag{Name: "debug", Usage: "print formatting progress"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("mkfs: exactly one IMAGE argument is required", 1)
			}
			path := c.Args().Get(0)

			opts := []sffs.ImageOption{
				sffs.WithImagePath(path),
				sffs.WithSizeInMB(int(c.Uint64("size-mb"))),
				sffs.WithMaxInodeList(uint32(c.Uint("max-inode-list"))),
				sffs.WithPreallocBlocks(uint32(c.Uint("prealloc-blocks"))),
				sffs.WithPreallocDirBlocks(uint32(c.Uint("prealloc-dir-blocks"))),
				sffs.WithDebug(c.Bool("debug")),
				sffs.WithWarnFunc(func(msg string) { log.Printf("mkfs: warning: %s", msg) }),
			}
			if bs := c.Uint("block-size"); bs != 0 {
				opts = append(opts, sffs.WithBlockSize(uint32(bs)))
			}
			if ratio := c.Uint("inode-ratio"); ratio != 0 {
				opts = append(opts, sffs.WithInodeRatio(uint32(ratio)))
			}

			img, err := sffs.Init(opts...)
			if err != nil {
				return cli.Exit(fmt.Sprintf("mkfs: %v", err), 1)
			}
			defer img.Unmount()

			stat := img.Statfs()
			fmt.Printf("created %s: %d bytes/block, %d inodes, %d free blocks\n", path, stat.BlockSize, stat.TotalInodes, stat.FreeBlocks)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
