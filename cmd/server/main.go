package main

import "reveal-backend/internal/app"

func main() {
	app.Run()
}
