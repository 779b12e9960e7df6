package main

import "github.com/notargets/gomantle/cmd"

func main() {
	cmd.Execute()
}
