package main

import "github.com/collably/ms-go-orders/cmd"

func main() {
	cmd.Execute()
}
