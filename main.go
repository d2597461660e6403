package main

import "github.com/socialagro/social-agro-backend/cmd"

func main() {
	cmd.Execute()
}
