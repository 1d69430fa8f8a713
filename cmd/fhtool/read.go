package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-fwhub/romimage"
)

func newReadCmd(g *globalFlags) *cobra.Command {
	var (
		offsetStr string
		lengthStr string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "read <output>",
		Short: "Dump flash contents to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "raw" && format != "ihex" {
				return fmt.Errorf("unknown format %q (want raw or ihex)", format)
			}

			h, err := openHub(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer h.Close(false)

			off, err := parseSize(offsetStr)
			if err != nil {
				return fmt.Errorf("--offset: %w", err)
			}
			length := int64(h.cfg.Size) - off
			if lengthStr != "" {
				if length, err = parseSize(lengthStr); err != nil {
					return fmt.Errorf("--length: %w", err)
				}
			}
			if off >= int64(h.cfg.Size) || length <= 0 {
				return fmt.Errorf("nothing to read at offset 0x%X", off)
			}

			s, err := h.dev.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Release()

			var buf bytes.Buffer
			var w io.Writer = &buf
			if !g.noProgress {
				bar := progressbar.DefaultBytes(length, "reading")
				defer bar.Close()
				w = io.MultiWriter(&buf, bar)
			}

			n, err := s.ReadTo(cmd.Context(), w, off, int(length))
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if format == "ihex" {
				err = romimage.WriteIntelHex(f, buf.Bytes(), uint32(h.cfg.DataPhys)+uint32(off))
			} else {
				_, err = f.Write(buf.Bytes())
			}
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "read %d bytes from 0x%X to %s\n", n, off, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&offsetStr, "offset", "0", "flash offset to start at")
	cmd.Flags().StringVar(&lengthStr, "length", "", "bytes to read (default: to the end)")
	cmd.Flags().StringVar(&format, "format", "raw", "output format: raw|ihex")
	return cmd
}
