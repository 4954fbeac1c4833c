package vulkan

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
)

//go:generate glslc ../shaders/quad.vert -o ../shaders/quad.vert.spv
//go:generate glslc ../shaders/quad_vertex.vert -o ../shaders/quad_vertex.vert.spv
//go:generate glslc ../shaders/quad.frag -o ../shaders/quad.frag.spv

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

// ReadSPIRV reads a compiled shader from disk as 32-bit words.
func ReadSPIRV(path string) ([]uint32, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader %s: %d bytes is not a whole number of SPIR-V words", path, len(code))
	}
	return bytesToBytecode(code), nil
}

// LoadShader reads the SPIR-V file at path and creates a shader module from
// it.
func LoadShader(dev gpu.Device, path string) (gpu.ShaderModule, error) {
	code, err := ReadSPIRV(path)
	if err != nil {
		return 0, err
	}

	module, err := dev.CreateShaderModule(code)
	if err != nil {
		return 0, errors.Wrapf(err, "load shader %s", path)
	}
	return module, nil
}

func (c *Context) CreateShaderModule(code []uint32) (gpu.ShaderModule, error) {
	module, _, err := c.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create shader module")
	}
	return gpu.ShaderModule(c.shaderModules.add(module)), nil
}

func (c *Context) DestroyShaderModule(module gpu.ShaderModule) {
	if m, ok := c.shaderModules.remove(uint64(module)); ok {
		c.deviceDriver.DestroyShaderModule(m, nil)
	}
}
