// Command send_test_message posts a simulated WhatsApp webhook delivery to a
// running gateway, so the full turn pipeline can be exercised without a real
// Cloud API subscription.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

type textBody struct {
	Body string `json:"body"`
}

type message struct {
	From string    `json:"from"`
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Text *textBody `json:"text,omitempty"`
}

type changeValue struct {
	Messages []message `json:"messages"`
}

type change struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type entry struct {
	Changes []change `json:"changes"`
}

type payload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

func main() {
	var (
		gateway = flag.String("gateway", "http://localhost:8080", "base URL of the bot gateway")
		from    = flag.String("from", "919999999999", "sender phone number")
		text    = flag.String("text", "help", "message text to deliver")
	)
	flag.Parse()

	body := payload{
		Object: "whatsapp_business_account",
		Entry: []entry{{
			Changes: []change{{
				Field: "messages",
				Value: changeValue{Messages: []message{{
					From: *from,
					ID:   fmt.Sprintf("wamid.test.%d", time.Now().UnixNano()),
					Type: "text",
					Text: &textBody{Body: *text},
				}}},
			}},
		}},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	resp, err := http.Post(*gateway+"/webhook", "application/json", bytes.NewReader(raw))
	if err != nil {
		log.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	fmt.Printf("delivered %q from %s: HTTP %d\n", *text, *from, resp.StatusCode)
}
