package main

import "github.com/KaramelBytes/dataqual-cli/cmd"

func main() {
	cmd.Execute()
}
