package main

import "github.com/liweiyi88/syncto/cmd"

func main() {
	cmd.Execute()
}
