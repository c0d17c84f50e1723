package main

import "multisender-core/cmd/multisender-cli/cmd"

func main() {
	cmd.Execute()
}
