package main

import "github.com/pranayama-assistant/pranayama/cmd/pranayama/commands"

func main() {
	commands.Execute()
}
