// Command cloudcode-proxy runs the OpenAI/Anthropic-to-Cloud-Code
// translating proxy in the current process, recording its PID so the
// stop and status lifecycle commands can find it.
package main

import (
	"fmt"
	"os"

	"cloudcode-proxy/internal/config"
	"cloudcode-proxy/internal/daemon"
	"cloudcode-proxy/internal/httpapi"
)

func main() {
	debug := false
	simpleLog := false
	enableLog := false
	fallback := false
	command := ""

	if len(os.Args) > 1 {
		for i := 1; i < len(os.Args); i++ {
			arg := os.Args[i]
			switch arg {
			case "-d", "--debug":
				debug = true
			case "-s", "--simple":
				simpleLog = true
			case "-l", "--log":
				enableLog = true
			case "--fallback":
				fallback = true
			case "--no-browser", "--no-ngrok":
				// this proxy never launches a browser or spawns a
				// tunnel; accepted so the same command line works
				// unmodified against it.
			case "stop", "status", "version", "help", "-h", "--help":
				command = arg
			}
		}
	}

	var cfg *config.Config
	var err error
	if debug {
		cfg, err = config.LoadWithDebug(true, simpleLog)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if simpleLog {
		cfg.SimpleLog = true
	}
	if fallback {
		cfg.Fallback = true
	}

	switch command {
	case "stop":
		daemon.Stop(cfg.Port)
		return
	case "status":
		daemon.Status(cfg.Port)
		return
	case "version":
		fmt.Println("cloudcode-proxy v" + httpapi.ProxyVersion)
		return
	case "help", "-h", "--help":
		printHelp()
		return
	}

	if debug {
		fmt.Println("debug mode enabled - logging full /v1/messages request bodies")
	}
	if simpleLog {
		fmt.Println("simple log mode enabled - one summary line per request")
	}

	if daemon.IsRunning(cfg.Port) {
		fmt.Println("proxy is already running")
		os.Exit(0)
	}

	if err := daemon.Start(cfg.Port, enableLog); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	if err := httpapi.Start(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`cloudcode-proxy - an OpenAI/Anthropic API proxy backed by Google Cloud Code

Usage:
  cloudcode-proxy [flags]   start the proxy daemon
  cloudcode-proxy stop      stop the proxy daemon
  cloudcode-proxy status    check whether the proxy is running
  cloudcode-proxy version   print the version
  cloudcode-proxy help      print this help

Flags:
  -d, --debug        log full /v1/messages request bodies
  -s, --simple       log a one-line summary per request
  -l, --log          write daemon output to a log file (off by default)
  --fallback         degrade a failed response translation into a plain
                     end_turn message instead of failing the request
  --no-browser       accepted for compatibility; this proxy never opens a browser
  --no-ngrok         accepted for compatibility; this proxy never spawns a tunnel

Configuration (checked in order):
  1. ./.env
  2. ~/.claude/proxy.env
  3. ~/.claude-code-proxy

  Required:
    CLOUD_CODE_API_KEY               API key for the Cloud Code upstream

  Optional:
    PROXY_API_KEY                    require this key from callers
    CLOUD_CODE_BASE_URL              override the Cloud Code base URL
    ANTHROPIC_DEFAULT_OPUS_MODEL     override the opus route
    ANTHROPIC_DEFAULT_SONNET_MODEL   override the sonnet route
    ANTHROPIC_DEFAULT_HAIKU_MODEL    override the haiku route
    DEFAULT_MODEL                    default upstream model
    GEMINI_1M_CONTEXT                widen gemini routes to their 1M-context variant
    NGROK_AUTH_TOKEN                 held for a future tunnel mode; unused today
    FALLBACK                         same effect as --fallback
    HOST                             server host (default: 0.0.0.0)
    PORT                             server port (default: 8082)

Example:
  ANTHROPIC_BASE_URL=http://localhost:8082 claude chat`)
}
