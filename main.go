package main

import "github.com/SergeOin/titan/cmd"

func main() {
	cmd.Execute()
}
