package main

import (
	"context"
	"log"

	"github.com/nguyengg/ziploader/internal/cmd"
	"github.com/nguyengg/ziploader/internal/config"
)

func main() {
	log.SetFlags(0)

	if _, err := config.Load(context.Background()); err != nil {
		log.Printf("load config error: %v", err)
	}

	p, err := cmd.NewParser()
	if err != nil {
		log.Fatal(err)
	}

	_, err = p.Parse()
	exit(err)
}
