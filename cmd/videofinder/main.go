// Command videofinder searches YouTube, scrapes the results and asks a
// language model to pick the best video.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/polzovatel/video-finder/cmd/videofinder/commands"
)

func main() {
	_ = godotenv.Load()
	os.Exit(commands.Execute())
}
