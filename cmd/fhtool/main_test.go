package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fwhub/fwhub"
	"github.com/moffa90/go-fwhub/romimage"
)

// run executes fhtool with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--no-progress"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(testContext(t))
	return stdout.String(), err
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"4096", 4096, false},
		{"0x10000", 0x10000, false},
		{"0XFFF00000", 0xFFF00000, false},
		{"64k", 64 << 10, false},
		{"1M", 1 << 20, false},
		{" 2k ", 2048, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "parseSize(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "parseSize(%q)", tt.in)
		assert.Equal(t, tt.want, got, "parseSize(%q)", tt.in)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "fhtool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"mem_device: /dev/fmem\n"+
			"data_phys: 0xFFF80000\n"+
			"size: 0x80000\n"+
			"poll_timeout: 2s\n"), 0o644))

	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/fmem", cfg.MemDevice)
	assert.Equal(t, uint64(0xFFF80000), cfg.DataPhys)
	assert.Equal(t, uint64(fwhub.DefaultLockPhys), cfg.LockPhys)
	assert.Equal(t, 0x80000, cfg.Size)
	assert.Equal(t, fwhub.DefaultBlockSize, cfg.BlockSize)
	assert.Equal(t, 2*time.Second, cfg.PollTimeout.Duration())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad duration", "poll_timeout: soon\n", "invalid duration"},
		{"bad geometry", "size: 100000\n", "multiple of block_size"},
		{"bad yaml", "size: [1\n", "parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := loadConfig(path)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	_, err := loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"block", "0x00010000", "status", 0xA0, "dangling"})
	assert.Equal(t, "0x00010000", f["block"])
	assert.Equal(t, 0xA0, f["status"])
	assert.Equal(t, "dangling", f["extra"])
}

func TestInfoSimulated(t *testing.T) {
	flash := filepath.Join(t.TempDir(), "flash.bin")

	for _, tt := range []struct {
		chip string
		want string
	}{
		{"sst", "SST 49LF008A"},
		{"intel", "Intel 82802AC"},
	} {
		out, err := run(t, "info", "--simulate", flash, "--chip", tt.chip)
		require.NoError(t, err)
		assert.Contains(t, out, tt.want)
		assert.Contains(t, out, "1024 KiB")
		assert.Contains(t, out, "16 blocks")
	}

	_, err := run(t, "info", "--simulate", flash, "--chip", "amd")
	assert.ErrorContains(t, err, "unknown chip")
}

func TestWriteReadVerifySimulated(t *testing.T) {
	dir := t.TempDir()
	flash := filepath.Join(dir, "flash.bin")
	image := filepath.Join(dir, "bios.bin")
	dump := filepath.Join(dir, "dump.bin")

	rom := make([]byte, 100000)
	for i := range rom {
		rom[i] = byte(i * 7)
	}
	require.NoError(t, os.WriteFile(image, rom, 0o644))

	out, err := run(t, "write", image, "--simulate", flash, "--offset", "64k")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 131072 bytes (2 blocks)")

	// The simulated array was saved.
	saved, err := os.ReadFile(flash)
	require.NoError(t, err)
	require.Len(t, saved, fwhub.DefaultSize)
	assert.Equal(t, rom, saved[64<<10:64<<10+len(rom)])

	out, err = run(t, "verify", image, "--simulate", flash, "--offset", "0x10000")
	require.NoError(t, err)
	assert.Contains(t, out, "verified 100000 bytes")

	_, err = run(t, "verify", image, "--simulate", flash)
	assert.ErrorIs(t, err, fwhub.ErrVerifyFailed)

	out, err = run(t, "read", dump, "--simulate", flash, "--offset", "64k", "--length", "100000")
	require.NoError(t, err)
	assert.Contains(t, out, "read 100000 bytes")

	got, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, rom, got)
}

func TestReadIntelHexSimulated(t *testing.T) {
	dir := t.TempDir()
	flash := filepath.Join(dir, "flash.bin")
	contents := bytes.Repeat([]byte{0xFF}, fwhub.DefaultSize)
	copy(contents[0x20:], "firmware hub")
	require.NoError(t, os.WriteFile(flash, contents, 0o644))

	dump := filepath.Join(dir, "dump.hex")
	_, err := run(t, "read", dump, "--simulate", flash, "--format", "ihex", "--length", "0x100")
	require.NoError(t, err)

	img, err := romimage.Load(dump, fwhub.DefaultDataPhys)
	require.NoError(t, err)
	assert.Equal(t, contents[:0x30], img.Data)

	// The hex dump verifies against the flash it came from.
	_, err = run(t, "verify", dump, "--simulate", flash)
	assert.NoError(t, err)
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	flash := filepath.Join(dir, "flash.bin")
	image := filepath.Join(dir, "bios.bin")
	require.NoError(t, os.WriteFile(image, []byte{1, 2, 3}, 0o644))

	_, err := run(t, "write", image)
	assert.ErrorContains(t, err, "--force")

	_, err = run(t, "write", image, "--simulate", flash, "--offset", "100")
	assert.ErrorIs(t, err, fwhub.ErrMisaligned)

	_, err = run(t, "write", image, "--simulate", flash, "--offset", "1m")
	assert.ErrorIs(t, err, fwhub.ErrOutOfRange)

	// Failed writes leave no simulated flash behind.
	_, err = os.Stat(flash)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "read", filepath.Join(dir, "x"), "--simulate", flash, "--format", "srec")
	assert.ErrorContains(t, err, "unknown format")
}

// testContext returns a context that is cancelled when the test finishes,
// standing in for testing.T.Context on toolchains older than Go 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
