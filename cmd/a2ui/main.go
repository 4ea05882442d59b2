package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/pthm/a2ui"
	"github.com/pthm/a2ui/lib/config"
	"github.com/pthm/a2ui/lib/markdown"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "replay":
		if err := runReplay(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("a2ui version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`a2ui - agent UI message dispatch and data binding

Usage:
  a2ui <command> [arguments]

Commands:
  replay [--config file] [--html] <script.yaml>
                                         Run a session script and print outbound traffic;
                                         --html also prints every Text component as HTML
  validate <messages.jsonl>              Schema-check server messages, one JSON object per line
  version                                Print version
  help                                   Show this help

Environment:
  A2UI_SESSION_PATH_POLICY   create (default) or strict
  A2UI_CODEC_FORMAT          json (default) or msgpack
  A2UI_CODEC_SIGNING_KEY     sign outbound frames with HMAC-SHA256
  A2UI_LOG_LEVEL             debug, info, warn, error

Examples:
  a2ui replay testdata/form.yaml
  a2ui replay --config a2ui.yaml testdata/form.yaml
  a2ui validate messages.jsonl`)
}

type replayFlags struct {
	config string
	html   bool
}

// parseFlags extracts replay flags and returns the remaining positional args.
func parseFlags(args []string) (f replayFlags, rest []string, err error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			if i+1 >= len(args) {
				return f, nil, fmt.Errorf("%s requires a file", args[i])
			}
			f.config = args[i+1]
			i++
		case "--html":
			f.html = true
		default:
			rest = append(rest, args[i])
		}
	}
	return f, rest, nil
}

func runReplay(args []string) error {
	flags, rest, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("replay takes exactly one script")
	}

	cfg, err := config.Load(flags.config)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return err
	}
	opts, err := a2ui.OptionsFromConfig(cfg.Session)
	if err != nil {
		return err
	}
	codec, err := a2ui.CodecFromConfig(cfg.Codec)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		return err
	}
	sc, err := parseScript(data)
	if err != nil {
		return err
	}

	sess := a2ui.NewSession(append(opts, a2ui.WithLogger(logger))...)
	defer sess.Close()
	if err := replay(sess, codec, sc, os.Stdout); err != nil {
		return err
	}
	if flags.html {
		return renderText(sess, markdown.New(), os.Stdout)
	}
	return nil
}

func runValidate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("validate takes exactly one file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var bad int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if _, err := a2ui.DecodeServerMessage(raw); err != nil {
			bad++
			fmt.Printf("line %d: %v\n", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if bad > 0 {
		return fmt.Errorf("%d invalid message(s)", bad)
	}
	fmt.Println("ok")
	return nil
}
