package userchan

import (
	"testing"
	"time"
)

func TestFIFOOrderingPerDirection(t *testing.T) {
	ch := NewChannel()
	user := ch.UserSide()
	core := ch.CoreSide()

	user.Send(Message{Kind: Open})
	user.Send(Message{Kind: Data, Payload: []byte("a")})
	user.Send(Message{Kind: Close})

	for _, want := range []Kind{Open, Data, Close} {
		m, ok := core.Receive()
		if !ok || m.Kind != want {
			t.Fatalf("got %v ok=%v, want %v", m.Kind, ok, want)
		}
	}
}

func TestDirectionsAreIndependent(t *testing.T) {
	ch := NewChannel()
	user := ch.UserSide()
	core := ch.CoreSide()

	core.Send(Message{Kind: TcbCreated})
	core.Send(Message{Kind: Connected})

	m, ok := user.Receive()
	if !ok || m.Kind != TcbCreated {
		t.Fatalf("got %v", m.Kind)
	}
	m, ok = user.Receive()
	if !ok || m.Kind != Connected {
		t.Fatalf("got %v", m.Kind)
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	ch := NewChannel()
	user := ch.UserSide()
	core := ch.CoreSide()

	done := make(chan Message, 1)
	go func() {
		m, _ := core.Receive()
		done <- m
	}()

	select {
	case <-done:
		t.Fatal("receive returned before send")
	case <-time.After(20 * time.Millisecond):
	}

	user.Send(Message{Kind: Open})
	select {
	case m := <-done:
		if m.Kind != Open {
			t.Fatalf("got %v", m.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("receive never woke up")
	}
}

func TestShutdownUnblocksReceive(t *testing.T) {
	ch := NewChannel()
	core := ch.CoreSide()

	done := make(chan bool, 1)
	go func() {
		_, ok := core.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Shutdown()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not unblock receive")
	}
}
