//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderStages = map[string]string{
	"shader.vert": "vert.spv",
	"shader.frag": "frag.spv",
}

// Compiles the GLSL shaders in shaders/ into SPIR-V with glslc.
func (Build) Shaders() error {
	for src, out := range shaderStages {
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withDir("shaders"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the shaders and the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Build engine...")
	_, err := executeCmd("go", withArgs("build", "-o", "bin/swapper", "."), withStream())
	return err
}
