package main

import "farm-agent/cmd"

func main() {
	cmd.Execute()
}
