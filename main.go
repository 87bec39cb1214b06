package main

import "offScreenAPI/cmd"

func main() {
	cmd.Execute()
}
