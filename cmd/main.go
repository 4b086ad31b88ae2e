package main

import "github.com/danilofalcao/chat-relay/internal/cmd"

func main() {
	cmd.Run()
}
