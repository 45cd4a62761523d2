package common

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ezlinkai/vllm-relay/common/logger"
)

var (
	Port         = flag.Int("port", 3000, "the listening port")
	PrintVersion = flag.Bool("version", false, "print version and exit")
	PrintHelp    = flag.Bool("help", false, "print help and exit")
	LogDir       = flag.String("log-dir", "", "specify the log directory")
)

func printHelp() {
	fmt.Println("vLLM Relay " + Version + " - OpenAI compatible relay for hosted vLLM backends.")
	fmt.Println("Usage: vllm-relay [--port <port>] [--log-dir <log directory>] [--version] [--help]")
}

// Init parses flags and prepares the log directory. Called once from main.
func Init() {
	flag.Parse()

	if *PrintVersion {
		fmt.Println(Version)
		os.Exit(0)
	}
	if *PrintHelp {
		printHelp()
		os.Exit(0)
	}
	if os.Getenv("SQLITE_PATH") != "" {
		SQLitePath = os.Getenv("SQLITE_PATH")
	}

	// flag > env > default
	logDir := *LogDir
	if logDir == "" {
		logDir = os.Getenv("LOG_DIR")
	}
	if logDir == "" {
		return
	}
	logDir, err := filepath.Abs(logDir)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		if err = os.Mkdir(logDir, 0777); err != nil {
			log.Fatal(err)
		}
	}
	logger.LogDir = logDir
}
