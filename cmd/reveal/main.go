// Command reveal is a terminal client for the pay-per-reveal demo server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reveal-backend/internal/client"
)

// Default server base URL; can override with REVEAL_SERVER env var or --server flag.
var serverBaseURL = "http://localhost:8000"

func main() {
	serverFlag := flag.String("server", "", "Override server base URL (e.g. https://api.example.com)")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	flag.Parse()
	if env := os.Getenv("REVEAL_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	r := newREPL(client.New(serverBaseURL, *timeout), os.Stdin, os.Stdout)
	if err := r.run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
