package main

import (
	"os"

	"github.com/maltedev/jewelry-catalog-scraper/internal/app"
)

func main() {
	os.Exit(app.RunSite("grt"))
}
