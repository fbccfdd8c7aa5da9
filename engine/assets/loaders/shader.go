package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/swapper/engine/core"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

type ShaderLoader struct{}

// Load reads a compiled SPIR-V module and checks that it looks like one.
func (sl *ShaderLoader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSpirv(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func ValidateSpirv(data []byte) error {
	if len(data) < 4 || len(data)%4 != 0 {
		return fmt.Errorf("%w: SPIR-V size %d is not a positive multiple of 4", core.ErrInvalidConfig, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != SpirvMagic {
		return fmt.Errorf("%w: bad SPIR-V magic %#08x", core.ErrInvalidConfig, magic)
	}
	return nil
}
