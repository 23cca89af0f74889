package main

import "fx-news-alerts/internal/cli"

func main() {
	cli.Execute()
}
