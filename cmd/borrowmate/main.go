package main

import "github.com/borrowmate/borrowmate/internal/cli"

func main() {
	cli.Execute()
}
