//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts the given board, e.g.
// "mage convert boards/main.kicad_pcb".
func Convert(board string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "convert", board)
}
