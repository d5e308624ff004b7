package main

import (
	"os"

	"github.com/riptide-sec/riptide/cmd/riptide/commands"
)

func main() {
	os.Exit(commands.Execute())
}
