//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Server runs the scinthd server directly with go run, bypassing Build.Binary.
func (Run) Server() error {
	fmt.Println("Run scinthd...")
	_, err := executeCmd("go", withArgs("run", "./cmd/scinthd"), withStream())
	return err
}
