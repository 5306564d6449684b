package main

import "github.com/deploymenttheory/go-avif/cmd"

func main() {
	cmd.Execute()
}
