package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	simulate   string
	chipName   string
	verbose    bool
	noProgress bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "fhtool",
		Short: "Read and program firmware hub flash",
		Long: "fhtool reads, writes and verifies the BIOS flash of boards with an Intel 82802AC\n" +
			"or SST 49LF008A firmware hub. It needs root to map /dev/mem; with --simulate it\n" +
			"works on an image file instead.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.simulate, "simulate", "", "use a simulated chip backed by this image file")
	root.PersistentFlags().StringVar(&g.chipName, "chip", "sst", "simulated chip: sst|intel")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log every block")
	root.PersistentFlags().BoolVar(&g.noProgress, "no-progress", false, "disable progress bars")

	root.AddCommand(
		newInfoCmd(g),
		newReadCmd(g),
		newWriteCmd(g),
		newVerifyCmd(g),
	)
	return root
}

// parseSize parses a byte count or offset: decimal, 0x hex, or with a
// k or m suffix.
func parseSize(s string) (int64, error) {
	ss := strings.TrimSpace(strings.ToLower(s))
	if ss == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch {
	case strings.HasPrefix(ss, "0x"):
	case strings.HasSuffix(ss, "k"):
		mult = 1024
		ss = strings.TrimSuffix(ss, "k")
	case strings.HasSuffix(ss, "m"):
		mult = 1024 * 1024
		ss = strings.TrimSuffix(ss, "m")
	}
	v, err := strconv.ParseInt(ss, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative size %q", s)
	}
	return v * mult, nil
}
