// Command tcpchoreosrv runs a single-connection TCP engine (package engine)
// against a raw IPv4 socket, driving the demonstration user thread that
// echoes received data back reversed.
package main

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"

	"github.com/soypat/tcpchoreo/engine"
	"github.com/soypat/tcpchoreo/peerchan"
	"github.com/soypat/tcpchoreo/tcp"
	"github.com/soypat/tcpchoreo/transport"
	"github.com/soypat/tcpchoreo/userchan"
)

// listenPort is the one TCP port this engine answers on; the spec's "open"
// operation has no port argument, so it is compiled in rather than
// configurable.
const listenPort = 555

func main() {
	err := run()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println("success")
}

func run() (err error) {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: %s <local-ipv4-address>", os.Args[0])
	}
	localIP, err := parseIPv4(os.Args[1])
	if err != nil {
		return fmt.Errorf("parsing local address %q: %w", os.Args[1], err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevelFromEnv("TCPCHOREO_LOG_LEVEL"),
	}))
	slog.SetDefault(logger)

	sock, err := transport.NewRawSocket(localIP)
	if err != nil {
		return fmt.Errorf("opening raw socket: %w", err)
	}
	defer sock.Close()

	local := peerchan.LocalAddr{IP: localIP, Port: listenPort}
	peer := peerchan.New(sock, local)
	peer.SetLog(logger)

	var issGen *tcp.ISSGenerator
	if secret := os.Getenv("TCPCHOREO_ISS_SECRET"); secret != "" {
		issGen = &tcp.ISSGenerator{Secret: []byte(secret)}
	}

	ch := userchan.NewChannel()
	core := engine.NewCore(peer, ch.CoreSide(), issGen)
	core.SetLog(logger)

	go runEchoReverseUser(ch.UserSide(), logger)

	return core.Run()
}

func parseIPv4(s string) ([4]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return [4]byte{}, err
	}
	if !addr.Is4() {
		return [4]byte{}, fmt.Errorf("%s is not an IPv4 address", s)
	}
	return addr.As4(), nil
}

// logLevelFromEnv reads envVar and maps it to a slog.Level, defaulting to
// Info when unset or unrecognized. "trace" maps to internal's below-Debug
// trace level so operators can dial into the same verbosity package
// internal gates its Trace calls on.
func logLevelFromEnv(envVar string) slog.Level {
	switch os.Getenv(envVar) {
	case "trace":
		return slog.LevelDebug - 2
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
