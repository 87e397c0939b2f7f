package main

import "github.com/steinarvk/whizdex/lib/cli"

func main() {
	cli.Main()
}
