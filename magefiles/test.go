//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests that need no GPU or window.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./engine/core/...", "./engine/containers/...", "./engine/math/...", "./engine/renderer", "./engine/assets/..."), withStream())
	return err
}
