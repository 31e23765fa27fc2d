// Command irccdctl is the control-protocol CLI client: it sends one
// command to a running irccd and prints the response, per spec.md
// §6.4's flag surface and exit codes.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/irccd-go/irccd/internal/transport"
)

type options struct {
	Config  string `short:"c" long:"config" description:"configuration file (unused by irccdctl directly; accepted for parity with irccd)"`
	Host    string `short:"h" long:"host" description:"daemon host" default:"localhost"`
	Port    uint16 `short:"p" long:"port" description:"daemon port" default:"8080"`
	Path    string `short:"P" long:"path" description:"unix socket path"`
	Type    string `short:"t" long:"type" description:"ip|ipv6|unix" default:"ip"`
	Verbose []bool `short:"v" long:"verbose" description:"increase verbosity (stackable)"`

	Args struct {
		Command   string   `positional-arg-name:"command"`
		Arguments []string `positional-arg-name:"key=value"`
	} `positional-args:"yes" required:"1"`
}

func main() {
	os.Exit(execute())
}

func execute() int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "irccdctl:", err)
		return 1
	}

	network, addr := dialTarget(opts)

	client, err := transport.Dial(network, addr, nil, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "irccdctl:", err)
		return 1
	}
	defer client.Close()

	req := map[string]any{"command": opts.Args.Command}
	for _, kv := range opts.Args.Arguments {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "irccdctl: malformed argument %q, expected key=value\n", kv)
			return 1
		}
		req[k] = parseArgValue(v)
	}

	resp, err := client.Command(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "irccdctl:", err)
		return 1
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))

	if status, _ := resp["status"].(bool); !status {
		return 1
	}
	return 0
}

func dialTarget(opts options) (network, addr string) {
	switch opts.Type {
	case "unix":
		return "unix", opts.Path
	case "ipv6":
		return "tcp6", net.JoinHostPort(opts.Host, strconv.Itoa(int(opts.Port)))
	default:
		return "tcp4", net.JoinHostPort(opts.Host, strconv.Itoa(int(opts.Port)))
	}
}

// parseArgValue lets a command-line key=value pair express a number or
// boolean, falling back to a bare string, since the control protocol's
// JSON properties are typed (spec.md §4.5).
func parseArgValue(v string) any {
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}
