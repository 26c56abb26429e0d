package main

import "github.com/tansive/backoffice/internal/cli"

func main() {
	cli.Execute()
}
