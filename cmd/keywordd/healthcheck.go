package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/snow-ghost/robotai/pkg/client"
)

// healthcheck probes the local keyword server and exits
func healthcheck() {
	port := os.Getenv("KEYWORDD_PORT")
	if port == "" {
		port = "8270"
	}

	c := client.NewClient(client.Config{
		BaseURL: fmt.Sprintf("http://localhost:%s", port),
		Timeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Health(ctx); err != nil {
		fmt.Printf("Health check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
