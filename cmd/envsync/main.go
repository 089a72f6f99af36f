// Command envsync keeps deployment environments identical.
package main

import (
	"envsync/internal/cli"
)

func main() {
	cli.Execute()
}
