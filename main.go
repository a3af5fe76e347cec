package main

import "github.com/KaramelBytes/wineqa/cmd"

func main() {
	cmd.Execute()
}
