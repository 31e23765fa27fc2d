package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/irccd-go/irccd/internal/plugin"
	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/server"
	"github.com/irccd-go/irccd/internal/transport"
)

func testServer(name string) *server.Server {
	events := make(chan server.Event, 8)
	return server.New(server.Config{
		Name:     name,
		Host:     "irc.example",
		Port:     6667,
		Identity: server.Identity{Nickname: "bot"},
		Settings: server.Settings{ReconnectTries: -1, ReconnectDelay: 5, PingTimeout: 60, CommandChar: "!"},
	}, events)
}

func TestPostDrainRunsInOrderAndRecoversPanic(t *testing.T) {
	d := New(nil)

	var order []int
	var mu sync.Mutex
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	d.Post(record(1))
	d.Post(func() { panic("boom") })
	d.Post(record(2))

	d.drainPosted()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected [1 2] around the panicking closure, got %v", order)
	}
}

type recorderPlugin struct {
	mu       sync.Mutex
	messages []string
	commands []string
}

func (p *recorderPlugin) Info() plugin.Info { return plugin.Info{Name: "logger"} }
func (p *recorderPlugin) Load(*plugin.Context) error { return nil }
func (p *recorderPlugin) Unload()                    {}

func (p *recorderPlugin) OnMessage(origin, channel, message string, srv *server.Server) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func (p *recorderPlugin) OnCommand(origin, channel, message string, srv *server.Server) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, message)
}

func TestRouteEventAppliesRuleDrop(t *testing.T) {
	d := New(nil)
	logger := &recorderPlugin{}
	other := &recorderPlugin{}
	d.RegisterPlugin("logger", func() plugin.Plugin { return logger })
	d.RegisterPlugin("other", func() plugin.Plugin { return other })
	if err := d.LoadPlugin("logger", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.LoadPlugin("other", ""); err != nil {
		t.Fatal(err)
	}

	d.rules.Add(rule.Rule{Plugins: []string{"logger"}, Events: []string{"onMessage"}, Action: rule.Drop})

	srv := testServer("s")
	ev := server.MessageEvent{Origin: "a!b@c", Channel: "#x", Message: "hi"}
	ev.Server = srv

	d.routeEvent(ev)
	d.drainPosted()

	logger.mu.Lock()
	loggerGotIt := len(logger.messages) > 0
	logger.mu.Unlock()
	if loggerGotIt {
		t.Fatal("logger plugin should have been dropped by the rule")
	}

	other.mu.Lock()
	defer other.mu.Unlock()
	if len(other.messages) != 1 || other.messages[0] != "hi" {
		t.Fatalf("expected other plugin to receive the message, got %v", other.messages)
	}
}

func TestRouteEventReclassifiesCommandPrefix(t *testing.T) {
	d := New(nil)
	ask := &recorderPlugin{}
	other := &recorderPlugin{}
	d.RegisterPlugin("ask", func() plugin.Plugin { return ask })
	d.RegisterPlugin("other", func() plugin.Plugin { return other })
	if err := d.LoadPlugin("ask", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.LoadPlugin("other", ""); err != nil {
		t.Fatal(err)
	}

	srv := testServer("s")
	ev := server.MessageEvent{Origin: "a!b@c", Channel: "#x", Message: "!ask weather?"}
	ev.Server = srv

	d.routeEvent(ev)
	d.drainPosted()

	ask.mu.Lock()
	defer ask.mu.Unlock()
	if len(ask.commands) != 1 || ask.commands[0] != "weather?" {
		t.Fatalf("expected ask to receive on_command(weather?), got %v", ask.commands)
	}
	if len(ask.messages) != 0 {
		t.Fatalf("ask should not also receive on_message, got %v", ask.messages)
	}

	other.mu.Lock()
	defer other.mu.Unlock()
	if len(other.messages) != 1 || other.messages[0] != "!ask weather?" {
		t.Fatalf("expected other plugin to receive the raw message, got %v", other.messages)
	}
}

func readFrame(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		sb.WriteString(line)
		if err != nil {
			t.Fatalf("reading frame: %v", err)
		}
		if strings.HasSuffix(sb.String(), "\r\n\r\n") {
			break
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(sb.String())), &m); err != nil {
		t.Fatalf("decoding frame %q: %v", sb.String(), err)
	}
	return m
}

func TestEndToEndServerConnectCommand(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	d := New(nil)
	tr := transport.NewServer(ln, "", d.Frames(), nil)
	d.AddTransport(tr)

	go tr.Run()
	defer tr.Close()
	go d.Run()
	defer d.Stop()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	readFrame(t, reader) // banner

	req := map[string]any{"command": "server-connect", "name": "freenode", "host": "irc.example", "port": 6667}
	data, _ := json.Marshal(req)
	conn.Write(append(data, []byte("\r\n\r\n")...))

	resp := readFrame(t, reader)
	if resp["status"] != true {
		t.Fatalf("expected successful server-connect, got %v", resp)
	}

	dup, _ := json.Marshal(req)
	conn.Write(append(dup, []byte("\r\n\r\n")...))

	resp2 := readFrame(t, reader)
	if resp2["status"] != false {
		t.Fatalf("expected duplicate server-connect to fail, got %v", resp2)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := d.Server("freenode"); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected freenode to be registered on the daemon")
}
