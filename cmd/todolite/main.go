package main

import (
	"os"

	"todolite/cmd/todolite/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
