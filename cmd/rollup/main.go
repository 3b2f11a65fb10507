package main

import (
	"os"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
