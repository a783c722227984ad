// Command mount opens an SFFS image and exercises its mount/readdir/
// unmount surface. It does not bridge to a kernel VFS; it is a
// demonstration and diagnostic tool, not a real mount(8) replacement.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/mejjete/SFFS"
)

func main() {
	log.SetFlags(0)

	app := &cli.App{
		Name:      "mount.sffs",
		Usage:     "mount an SFFS image and list its root directory",
		ArgsUsage: "IMAGE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "print mount progress"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("mount: exactly one IMAGE argument is required", 1)
			}
			path := c.Args().Get(0)
			session := uuid.New()

			img, err := sffs.Mount(
				sffs.WithImagePath(path),
				sffs.WithDebug(c.Bool("debug")),
				sffs.WithWarnFunc(func(msg string) { log.Printf("mount[%s]: warning: %s", session, msg) }),
			)
			if err != nil {
				return cli.Exit(fmt.Sprintf("mount: %v", err), 1)
			}
			defer img.Unmount()

			log.Printf("mount[%s]: %s mounted", session, path)

			stat := img.Statfs()
			fmt.Printf("blocks: %d/%d free  inodes: %d/%d free  mounts: %d/%d\n",
				stat.FreeBlocks, stat.TotalBlocks, stat.FreeInodes, stat.TotalInodes,
				stat.MountCount, stat.MaxMountCount)

			entries, err := img.Readdir(sffs.RootIno)
			if err != nil {
				return cli.Exit(fmt.Sprintf("mount: readdir: %v", err), 1)
			}
			for _, e := range entries {
				fmt.Printf("%8d  %s\n", e.Ino, e.Name)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
