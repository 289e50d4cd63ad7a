package main

import (
	"context"
	"fkpatch/commands"
	"fkpatch/logging"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
}

func main() {
	// .env 可选，用于 assist 端点与代理配置
	_ = godotenv.Load()

	err := commands.Root().Run(context.Background(), os.Args)
	logging.Sync()
	if err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
}
