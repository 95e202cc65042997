package main

import (
	"log"

	"github.com/patric-chuzhbe/usersvc/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalln("unable to initialize the application:", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalln("application terminated with error:", err)
	}
}
