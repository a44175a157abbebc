package main

import (
	"os"

	"horse.fit/pagetrans/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
