package main

import "github.com/catalogtool/cmd"

func main() {
	cmd.Execute()
}
