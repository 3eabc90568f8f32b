// ./main.go
package main

import (
	"github.com/nullbytefox/posterhound/cmd"
)

// main is the entry point for the posterhound CLI.
func main() {
	cmd.Execute()
}
