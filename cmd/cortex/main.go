package main

import "github.com/steeltroops-ai/omnicontext/internal/cli"

func main() {
	cli.Execute()
}
