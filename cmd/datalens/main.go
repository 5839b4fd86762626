package main

import "github.com/bryanwahyu/datalens/internal/cli"

func main() {
	cli.Execute()
}
