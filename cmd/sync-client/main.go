package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	synchub "bookreviews/internal/sync"
)

type AnyEvent map[string]any

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	topics := flag.String("topics", "", "comma-separated topics (e.g. reviews,feedback:owner:<user-id>); empty = everything")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With(slog.String("component", "sync-client"))

	var subscribe []string
	for _, t := range strings.Split(*topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			subscribe = append(subscribe, t)
		}
	}

	for {
		if err := run(*addr, *pretty, subscribe, log); err != nil {
			log.Warn("disconnected", slog.String("error", err.Error()))
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool, topics []string, log *slog.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Info("connected", slog.String("addr", addr))

	if len(topics) > 0 {
		b, _ := json.Marshal(synchub.SubscribeMessage{Type: synchub.SubscribeMessageType, Topics: topics})
		if _, err := conn.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj AnyEvent
		if err := json.Unmarshal(line, &obj); err != nil {
			// not JSON? print raw
			fmt.Println(string(line))
			continue
		}

		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
