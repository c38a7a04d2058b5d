package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

var (
	baseURL  = flag.StringP("url", "u", "http://127.0.0.1:8080", "acoumeshd API base URL")
	peer     = flag.StringP("to", "t", "", "destination device id for send (omit for broadcast)")
	priority = flag.IntP("priority", "p", 0, "send priority (0 uses the daemon default)")
	limit    = flag.IntP("limit", "l", 50, "result limit for frames")
	timeout  = flag.Duration("timeout", 5*time.Second, "request timeout")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		showHelp()
		return
	}

	client := &http.Client{Timeout: *timeout}

	switch args[0] {
	case "status":
		get(client, "/api/v1/status")

	case "peers":
		get(client, "/api/v1/peers")

	case "frames":
		get(client, fmt.Sprintf("/api/v1/frames?limit=%d", *limit))

	case "audio":
		get(client, "/api/v1/audio")

	case "send":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "send requires a message argument")
			os.Exit(1)
		}
		body := map[string]interface{}{
			"to":       *peer,
			"message":  args[1],
			"priority": *priority,
		}
		post(client, "/api/v1/send", body)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		showHelp()
		os.Exit(1)
	}
}

func get(client *http.Client, path string) {
	resp, err := client.Get(*baseURL + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func post(client *http.Client, path string, body map[string]interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode request: %v\n", err)
		os.Exit(1)
	}

	resp, err := client.Post(*baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read response: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "%s: %s\n", resp.Status, data)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(pretty.String())
}

func showHelp() {
	fmt.Println("acoumeshctl - acoustic mesh daemon control tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags] <command> [args]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status              Get daemon status")
	fmt.Println("  peers               List known peers")
	fmt.Println("  frames              List recently observed frames")
	fmt.Println("  audio               Show input level/spectrum snapshot")
	fmt.Println("  send <message>      Queue a message for transmission")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s status\n", os.Args[0])
	fmt.Printf("  %s send 'hello mesh'\n", os.Args[0])
	fmt.Printf("  %s -t <device-id> -p 9 send 'urgent'\n", os.Args[0])
}
