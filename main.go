package main

import "linkparser/cmd"

func main() {
	cmd.Execute()
}
