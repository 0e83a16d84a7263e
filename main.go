// The main package for the extractor executable.
package main

import (
	"github.com/shoplens/extractor/cmd"
)

func main() {
	cmd.Execute()
}
