package main

import "github.com/nfrund/goby-messenger/cmd/goby-auth/cmd"

func main() {
	cmd.Execute()
}
