package netline

import (
	"io"
	"testing"
)

func TestListenAcceptAndDialExchangeBytes(t *testing.T) {
	ln, err := Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	acceptDone := make(chan io.ReadWriteCloser, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		acceptDone <- conn
	}()

	client, err := Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server := <-acceptDone
	defer server.Close()

	if _, err := client.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 6)
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buf) != "hello\n" {
		t.Fatalf("got %q", buf)
	}
}
