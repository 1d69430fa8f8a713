package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fwhub/fwhub"
	"github.com/moffa90/go-fwhub/romimage"
)

func newVerifyCmd(g *globalFlags) *cobra.Command {
	var (
		offsetStr string
		baseStr   string
	)

	cmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Compare flash contents with an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := parseSize(offsetStr)
			if err != nil {
				return fmt.Errorf("--offset: %w", err)
			}

			h, err := openHub(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer h.Close(false)

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

			s, err := h.dev.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Release()

			got := make([]byte, len(img.Data))
			n, err := s.ReadAt(cmd.Context(), got, off)
			if err != nil {
				return err
			}
			if n < len(img.Data) {
				return fmt.Errorf("%w: image is %d bytes, only %d left at 0x%X", fwhub.ErrOutOfRange, len(img.Data), n, off)
			}

			diff, first := compare(img.Data, got, int(off), h.cfg.BlockSize)
			if diff > 0 {
				return fmt.Errorf("%d bytes differ: %w", diff, first)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "verified %d bytes at 0x%X\n", len(img.Data), off)
			return nil
		},
	}

	cmd.Flags().StringVar(&offsetStr, "offset", "0", "flash offset of the image")
	cmd.Flags().StringVar(&baseStr, "base", "", "address of flash offset 0 in Intel HEX files (default: data window)")
	return cmd
}

// compare counts differing bytes and describes the first one.
func compare(want, got []byte, off, blockSize int) (int, *fwhub.VerifyError) {
	var first *fwhub.VerifyError
	diff := 0
	for i := range want {
		if want[i] == got[i] {
			continue
		}
		if first == nil {
			addr := off + i
			first = &fwhub.VerifyError{
				Block:  addr - addr%blockSize,
				Offset: addr,
				Want:   want[i],
				Got:    got[i],
			}
		}
		diff++
	}
	return diff, first
}
