package choreo

import (
	"errors"
	"testing"
	"time"
)

func TestTokenReusePanics(t *testing.T) {
	tok := New("established")
	_ = tok.Continue()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second Continue")
		}
	}()
	tok.Continue()
}

func TestZeroTokenPanics(t *testing.T) {
	var tok Token[int]
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero-value Token")
		}
	}()
	tok.Continue()
}

func TestOfferOneSelectOne(t *testing.T) {
	msg, tok, err := OfferOne(func() (string, error) { return "syn", nil }, "synrcvd")
	if err != nil || msg != "syn" {
		t.Fatalf("unexpected offer_one result: %q %v", msg, err)
	}
	if tok.Continue() != "synrcvd" {
		t.Fatal("wrong continuation")
	}

	sent := false
	stok, err := SelectOne(func(m string) error { sent = true; return nil }, "synack", "synrcvd")
	if err != nil || !sent {
		t.Fatal("select_one did not send")
	}
	if stok.Continue() != "synrcvd" {
		t.Fatal("wrong continuation")
	}
}

func TestOfferOnePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	_, _, err := OfferOne(func() (string, error) { return "", wantErr }, "x")
	if err != wantErr {
		t.Fatalf("expected error propagation, got %v", err)
	}
}

func TestOfferTwoTimeout(t *testing.T) {
	recv := func(deadline time.Time) (string, bool, error) {
		return "", true, nil
	}
	branch, err := OfferTwo(recv, time.Now().Add(time.Millisecond), func(msg string, timedOut bool) (string, string) {
		if timedOut {
			return "Timeout", "loop"
		}
		return "Data", "loop"
	})
	if err != nil {
		t.Fatal(err)
	}
	if branch.Tag != "Timeout" || !branch.TimedOut {
		t.Fatalf("expected Timeout branch, got %+v", branch)
	}
	if branch.Token.Continue() != "loop" {
		t.Fatal("wrong continuation")
	}
}
