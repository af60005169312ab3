package main

import (
	"log/slog"

	"github.com/soypat/tcpchoreo/userchan"
)

// runEchoReverseUser is the demonstration user thread named in the
// connection's message alphabet walkthrough: it opens a passive listen,
// waits for the handshake, reverses every byte slice it receives as Data
// and sends it straight back, and half-closes in response to a remote
// close. It owns its Side exclusively and never touches the core's TCB.
func runEchoReverseUser(side userchan.Side, log *slog.Logger) {
	side.Send(userchan.Message{Kind: userchan.Open})

	for {
		msg, ok := side.Receive()
		if !ok {
			return
		}
		switch msg.Kind {
		case userchan.TcbCreated:
			log.Info("tcb created, awaiting handshake")
		case userchan.Connected:
			log.Info("connection established")
		case userchan.Data:
			reversed := reverseBytes(msg.Payload)
			side.Send(userchan.Message{Kind: userchan.Data, Payload: reversed})
		case userchan.Close:
			log.Info("peer closed, half-closing")
			side.Send(userchan.Message{Kind: userchan.Close})
			return
		}
	}
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
