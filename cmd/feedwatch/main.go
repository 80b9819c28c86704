// Package main is a small client that prints live feed events from a Chronicle server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	username := flag.String("username", "", "Log in as this user (anonymous when empty)")
	password := flag.String("password", "password123", "Password for -username")
	flag.Parse()

	header := http.Header{}
	if *username != "" {
		token, err := login(*host, *username, *password)
		if err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
		header.Set("Authorization", "Bearer "+token)
		log.Printf("✅ Logged in as %s", *username)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws/feed"}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("❌ Dial %s failed: %v", u.String(), err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = c.Close() }()
	log.Printf("📡 Watching %s", u.String())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("read: %v", err)
				}
				return
			}
			var ev event
			if err := json.Unmarshal(raw, &ev); err != nil {
				log.Printf("unexpected message: %s", raw)
				continue
			}
			fmt.Printf("%s %-16s %s\n", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.Payload)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(host, username, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/auth/login", host)
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	resp, err := http.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
