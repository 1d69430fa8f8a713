package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-fwhub/fwhub"
	"github.com/moffa90/go-fwhub/romimage"
)

func newWriteCmd(g *globalFlags) *cobra.Command {
	var (
		offsetStr string
		baseStr   string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "write <image>",
		Short: "Program an image into flash",
		Long: "Program a raw or Intel HEX image into flash. Every block the image touches is\n" +
			"unlocked, erased, programmed, locked again and read back. A failure stops the\n" +
			"write; blocks already written are not restored.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if g.simulate == "" && !force {
				return fmt.Errorf("refusing to write real flash without --force")
			}

			off, err := parseSize(offsetStr)
			if err != nil {
				return fmt.Errorf("--offset: %w", err)
			}

			var bar *progressbar.ProgressBar
			progress := fwhub.WithProgressCallback(func(p fwhub.Progress) {
				if bar == nil {
					return
				}
				bar.Describe(p.Phase)
				_ = bar.Set(p.BytesWritten)
			})

			h, err := openHub(g, cmd.ErrOrStderr(), progress)
			if err != nil {
				return err
			}
			written := 0
			defer func() {
				if cerr := h.Close(written > 0); err == nil {
					err = cerr
				}
			}()

			base := h.cfg.DataPhys
			if baseStr != "" {
				b, err := parseSize(baseStr)
				if err != nil {
					return fmt.Errorf("--base: %w", err)
				}
				base = uint64(b)
			}

			img, err := romimage.Load(args[0], uint32(base))
			if err != nil {
				return err
			}
			if off > int64(h.cfg.Size) {
				return fmt.Errorf("%w: offset 0x%X", fwhub.ErrOutOfRange, off)
			}
			if err := img.Fit(h.cfg.Size - int(off)); err != nil {
				return fmt.Errorf("%w: %w", fwhub.ErrOutOfRange, err)
			}
			data := img.Padded(h.cfg.BlockSize)

			s, err := h.dev.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Release()

			if !g.noProgress {
				bar = progressbar.DefaultBytes(int64(len(data)), "writing")
				defer bar.Close()
			}

			written, err = s.WriteAt(cmd.Context(), data, off)
			if err != nil {
				return fmt.Errorf("wrote %d bytes before failure: %w", written, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes (%d blocks) at 0x%X from %s\n",
				written, written/h.cfg.BlockSize, off, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&offsetStr, "offset", "0", "block aligned flash offset")
	cmd.Flags().StringVar(&baseStr, "base", "", "address of flash offset 0 in Intel HEX files (default: data window)")
	cmd.Flags().BoolVar(&force, "force", false, "required to write real hardware")
	return cmd
}
