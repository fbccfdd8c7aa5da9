package assets

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/swapper/engine/assets/loaders"
	"github.com/spaghettifunk/swapper/engine/core"
)

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, loaders.SpirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func writeShader(t *testing.T, dir, stage string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, stage+".spv"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestShaderCode(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "vert", spirv(1, 2, 3))
	writeShader(t, dir, "frag", []byte{1, 2, 3, 4})

	am, err := NewAssetManager(dir)
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	defer am.Close()

	code, err := am.ShaderCode("vert")
	if err != nil {
		t.Fatalf("am.ShaderCode(vert): %v", err)
	}
	if len(code) != 16 {
		t.Fatalf("len(code)\nhave %d\nwant 16", len(code))
	}
	if am.LastLoaded("vert").IsZero() {
		t.Fatal("LastLoaded not updated")
	}

	if _, err := am.ShaderCode("frag"); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("am.ShaderCode(frag) with bad magic\nhave %v\nwant %v", err, core.ErrConfiguration)
	}
	if _, err := am.ShaderCode("geom"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("am.ShaderCode(geom)\nhave %v\nwant %v", err, core.ErrInvalidConfig)
	}
}

func TestShaderCodeMissingFile(t *testing.T) {
	am, err := NewAssetManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	if _, err := am.ShaderCode("vert"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("am.ShaderCode(vert)\nhave %v\nwant %v", err, os.ErrNotExist)
	}
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "frag", spirv(7))

	am, err := NewAssetManager(dir)
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	if err := am.Watch(); err != nil {
		t.Fatalf("am.Watch: %v", err)
	}
	defer am.Close()

	// not a shader, ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeShader(t, dir, "frag", spirv(8))

	select {
	case stage := <-am.Reloads():
		if stage != "frag" {
			t.Fatalf("reloaded stage\nhave %s\nwant frag", stage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing frag.spv")
	}
}

func TestShaderCodeKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "vert", spirv(1, 2))

	am, err := NewAssetManager(dir)
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	want, err := am.ShaderCode("vert")
	if err != nil {
		t.Fatalf("am.ShaderCode(vert): %v", err)
	}

	for name, data := range map[string][]byte{
		"empty":     {},
		"truncated": spirv(3, 4)[:6],
	} {
		writeShader(t, dir, "vert", data)
		have, err := am.ShaderCode("vert")
		if err != nil {
			t.Fatalf("am.ShaderCode(vert) with %s file\nhave %v\nwant nil", name, err)
		}
		if string(have) != string(want) {
			t.Fatalf("am.ShaderCode(vert) with %s file\nhave %x\nwant %x", name, have, want)
		}
	}

	// a good file replaces the fallback
	writeShader(t, dir, "vert", spirv(5))
	have, err := am.ShaderCode("vert")
	if err != nil || len(have) != 8 {
		t.Fatalf("am.ShaderCode(vert) after a good write\nhave %x, %v\nwant 8 bytes, nil", have, err)
	}
}

func TestWatchIgnoresInvalidShader(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "vert", spirv(1))

	am, err := NewAssetManager(dir)
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	if err := am.Watch(); err != nil {
		t.Fatalf("am.Watch: %v", err)
	}
	defer am.Close()

	writeShader(t, dir, "vert", []byte{})
	select {
	case stage := <-am.Reloads():
		t.Fatalf("reload of %s for an empty file", stage)
	case <-time.After(500 * time.Millisecond):
	}

	writeShader(t, dir, "vert", spirv(2))
	select {
	case stage := <-am.Reloads():
		if stage != "vert" {
			t.Fatalf("reloaded stage\nhave %s\nwant vert", stage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing a valid vert.spv")
	}
}

func TestCloseStopsWatcher(t *testing.T) {
	am, err := NewAssetManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	if err := am.Watch(); err != nil {
		t.Fatalf("am.Watch: %v", err)
	}
	if err := am.Close(); err != nil {
		t.Fatalf("am.Close: %v", err)
	}
	if err := am.Close(); err != nil {
		t.Fatalf("second am.Close: %v", err)
	}
	if err := am.Watch(); err == nil {
		t.Fatal("Watch after Close succeeded")
	}
}
