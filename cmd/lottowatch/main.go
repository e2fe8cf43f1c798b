package main

import "github.com/vietddude/lottowatch/internal/cli"

func main() {
	cli.Execute()
}
