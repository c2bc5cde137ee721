package main

import (
	"os"

	coachrelaycmder "github.com/adaptiveopslab/coachrelay/cmd/coachrelay"
)

func main() {
	cmd := coachrelaycmder.NewCoachrelayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
