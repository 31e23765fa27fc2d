package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestSplitFramesSplitsOnTerminator(t *testing.T) {
	data := []byte(`{"a":1}` + terminator + `{"b":2}` + terminator)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Split(splitFrames)

	var frames []string
	for scanner.Scan() {
		frames = append(frames, scanner.Text())
	}

	if len(frames) != 2 || frames[0] != `{"a":1}` || frames[1] != `{"b":2}` {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestBannerVerifyAcceptsCompatibleMinor(t *testing.T) {
	client := NewBanner(true)
	server := Banner{Program: "irccd", Major: client.Major, Minor: client.Minor + 1, Patch: 0}

	if err := client.Verify(server); err != nil {
		t.Fatalf("expected compatible minor to verify, got %v", err)
	}
}

func TestBannerVerifyRejectsWrongProgram(t *testing.T) {
	server := NewBanner(true)
	if err := server.Verify(Banner{Program: "notirccd"}); err == nil {
		t.Fatal("expected rejection of non-irccd program")
	}
}

func TestBannerVerifyRejectsMajorMismatch(t *testing.T) {
	server := NewBanner(true)
	if err := server.Verify(Banner{Program: "irccd", Major: server.Major + 1}); err == nil {
		t.Fatal("expected rejection of major version mismatch")
	}
}

func TestInboundClientRequiresAuthBeforeCommands(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	frames := make(chan Frame, 4)
	client := newClient(1, serverConn, "secret", nil)

	go client.writeLoop()
	go client.readLoop(frames)

	clientReader := bufio.NewReader(clientConn)
	scanner := newFrameScanner(clientReader)

	data, _ := encodeFrame(map[string]string{"command": "server-list"})
	clientConn.Write(data)

	if !scanner.Scan() {
		t.Fatal("expected a response to the unauthenticated command")
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status {
		t.Fatal("expected auth-required rejection")
	}

	select {
	case <-frames:
		t.Fatal("command should not have reached the frame channel before auth")
	case <-time.After(50 * time.Millisecond):
	}

	clientConn.Close()
}

func TestInboundClientAuthSuccessForwardsFrames(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	frames := make(chan Frame, 4)
	client := newClient(1, serverConn, "secret", nil)

	go client.writeLoop()
	go client.readLoop(frames)

	clientReader := bufio.NewReader(clientConn)
	scanner := newFrameScanner(clientReader)

	authData, _ := encodeFrame(AuthRequest{Command: "auth", Password: "secret"})
	clientConn.Write(authData)

	if !scanner.Scan() {
		t.Fatal("expected auth response")
	}
	var resp AuthResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Result {
		t.Fatal("expected successful auth")
	}

	cmdData, _ := encodeFrame(map[string]string{"command": "server-list"})
	clientConn.Write(cmdData)

	select {
	case f := <-frames:
		var m map[string]string
		json.Unmarshal(f.Payload, &m)
		if m["command"] != "server-list" {
			t.Fatalf("unexpected forwarded command: %v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the post-auth command to reach the frame channel")
	}

	clientConn.Close()
}
