package main

import (
	_ "time/tzdata"

	"cat-board/src/cmd"
)

func main() {
	cmd.Execute()
}
