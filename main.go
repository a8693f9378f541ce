package main

import "github.com/nstehr/rampart/rampart-core/cmd"

func main() {
	cmd.Execute()
}
