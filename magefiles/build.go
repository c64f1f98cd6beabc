//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Binary builds the scinthd server binary.
func (Build) Binary() error {
	fmt.Println("Build scinthd...")
	_, err := executeCmd("go", withArgs("build", "-o", "bin/scinthd", "./cmd/scinthd"), withStream())
	return err
}
