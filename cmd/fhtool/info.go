package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Detect the chip and print its geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := openHub(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer h.Close(false)

			info := h.dev.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Chip:         %v\n", info.Family)
			fmt.Fprintf(out, "Manufacturer: 0x%02X\n", info.ID.Manufacturer)
			fmt.Fprintf(out, "Device:       0x%02X\n", info.ID.Device)
			fmt.Fprintf(out, "Size:         %d KiB\n", info.Size>>10)
			fmt.Fprintf(out, "Block size:   %d KiB (%d blocks)\n", info.BlockSize>>10, info.Size/info.BlockSize)
			fmt.Fprintf(out, "Data window:  0x%08X\n", h.cfg.DataPhys)
			fmt.Fprintf(out, "Lock window:  0x%08X\n", h.cfg.LockPhys)
			return nil
		},
	}
}
