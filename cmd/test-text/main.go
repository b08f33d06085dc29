package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lavjo97/eolia-voice-relay/messages"
)

// Smoke test: connects to a running relay, sends a text turn and prints
// everything the relay sends back. Requires OPENAI_API_KEY on the relay.
func main() {
	addr := flag.String("addr", "ws://localhost:8090/ws", "relay WebSocket endpoint")
	text := flag.String("text", "Ajoute une ligne peinture des murs, 30 mètres carrés à 25 euros", "text turn to send")
	wait := flag.Duration("wait", 15*time.Second, "how long to wait for the reply")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(messages.ClientMessage{Type: messages.TypeText, Text: *text}); err != nil {
		log.Fatalf("send text: %v", err)
	}
	log.Printf("sent: %s", *text)

	deadline := time.Now().Add(*wait)
	for {
		conn.SetReadDeadline(deadline)
		var msg messages.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("read: %v", err)
			return
		}

		switch msg.Type {
		case messages.TypeIntent:
			fmt.Printf("intent (%s)\n", msg.Intent.Message)
			for _, a := range msg.Intent.Actions {
				fmt.Printf("  %s %v\n", a.Type, a.Params)
			}
		case messages.TypeResponseText:
			fmt.Printf("text: %s\n", msg.Text)
		case messages.TypeResponseTranscriptDelta:
			// streaming deltas are noisy, skip
		case messages.TypeError:
			log.Printf("relay error: %s", msg.Error)
		case messages.TypeResponseDone:
			log.Println("turn complete")
			return
		default:
			log.Printf("%s", msg.Type)
		}
	}
}
