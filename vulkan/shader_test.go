package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vkngwrapper/bitmap/gpu/gputest"
)

func TestBytesToBytecode(t *testing.T) {
	// SPIR-V magic number followed by a truncated trailing word.
	code := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00, 0xff})
	if len(code) != 2 || code[0] != 0x07230203 || code[1] != 0x00010000 {
		t.Errorf("bytesToBytecode\nhave %#x\nwant [0x7230203 0x10000]", code)
	}
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.spv")
	if err := os.WriteFile(valid, []byte{0x03, 0x02, 0x23, 0x07}, 0o644); err != nil {
		t.Fatal(err)
	}
	ragged := filepath.Join(dir, "ragged.spv")
	if err := os.WriteFile(ragged, []byte{0x03, 0x02, 0x23}, 0o644); err != nil {
		t.Fatal(err)
	}

	dev := gputest.NewDevice()
	module, err := LoadShader(dev, valid)
	if err != nil {
		t.Fatalf("LoadShader: %v", err)
	}
	if !module.Initialized() || dev.Live(gputest.KindShaderModule) != 1 {
		t.Errorf("LoadShader created %d modules, handle %d", dev.Live(gputest.KindShaderModule), module)
	}

	for _, path := range []string{ragged, filepath.Join(dir, "missing.spv")} {
		if _, err := LoadShader(dev, path); err == nil {
			t.Errorf("LoadShader(%s): want error", filepath.Base(path))
		}
	}
	if dev.Live(gputest.KindShaderModule) != 1 {
		t.Errorf("failed loads created shader modules")
	}
}
