package main

import "github.com/Taichi-iskw/yt-rag/cmd"

func main() {
	cmd.Execute()
}
