package main

import (
	"log"

	"github.com/spigell/cv-screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
