package main

import "github.com/wippyai/kool-runtime/cmd/koolrun/cmd"

func main() {
	cmd.Execute()
}
