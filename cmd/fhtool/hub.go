package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/chipsim"
	"github.com/moffa90/go-fwhub/fwhub"
	"github.com/moffa90/go-fwhub/mmio"
	"github.com/moffa90/go-fwhub/romimage"
)

// hub is an open device and whatever backs it.
type hub struct {
	dev  *fwhub.Device
	cfg  Config
	sim  *chipsim.Chip
	path string
}

// openHub opens the device selected by the global flags. Extra options are
// applied after the configuration.
func openHub(g *globalFlags, stderr io.Writer, extra ...fwhub.Option) (*hub, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.options(), fwhub.WithLogger(newLogger(stderr, g.verbose)))
	opts = append(opts, extra...)

	if g.simulate == "" {
		dev, err := fwhub.Open(mmio.DevMem{Path: cfg.MemDevice}, opts...)
		if err != nil {
			return nil, err
		}
		return &hub{dev: dev, cfg: cfg}, nil
	}

	sim, err := newSimulator(g.simulate, g.chipName, cfg)
	if err != nil {
		return nil, err
	}
	dev, err := fwhub.Open(sim.Mapper(cfg.DataPhys, cfg.LockPhys), opts...)
	if err != nil {
		return nil, err
	}
	return &hub{dev: dev, cfg: cfg, sim: sim, path: g.simulate}, nil
}

// newSimulator returns a chip preloaded from the raw image at path. A
// missing file gives an erased chip.
func newSimulator(path, chipName string, cfg Config) (*chipsim.Chip, error) {
	var family chip.Family
	switch strings.ToLower(chipName) {
	case "sst":
		family = chip.FamilySST
	case "intel":
		family = chip.FamilyIntel
	default:
		return nil, fmt.Errorf("unknown chip %q (want sst or intel)", chipName)
	}

	image, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("simulated flash: %w", err)
	}
	if err := (&romimage.Image{Data: image}).Fit(cfg.Size); err != nil {
		return nil, fmt.Errorf("simulated flash %s: %w", path, err)
	}

	return chipsim.New(family, cfg.Size, cfg.BlockSize, chipsim.WithImage(image)), nil
}

// Close closes the device and, for a simulated chip, saves the array back
// to its image file when save is set.
func (h *hub) Close(save bool) error {
	err := h.dev.Close()
	if h.sim != nil && save {
		err = errors.Join(err, os.WriteFile(h.path, h.sim.Image(), 0o644))
	}
	return err
}
