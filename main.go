package main

import "github.com/leadgrid/crawl-gateway/cmd"

func main() {
	cmd.Execute()
}
