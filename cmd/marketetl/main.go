package main

import "github.com/vietddude/marketetl/internal/cli"

func main() {
	cli.Execute()
}
