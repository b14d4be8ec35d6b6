package main

import "github.com/MeetLima/osdbinfos/cmd/osdbinfos/cmd"

func main() {
	cmd.Execute()
}
