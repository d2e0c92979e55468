package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/GophIntake/internal/client"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive chat loop, sending one turn per input line.
func repl(api *client.API, ls *client.LocalState, reviewer string) {
	if out, err := api.Send(ls, client.Command{Action: client.ActionSend}); err != nil {
		fmt.Println("error:", err)
	} else {
		client.Render(os.Stdout, out)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := client.ParseCommand(line)
		if err != nil {
			fmt.Println(err)
			continue
		}

		switch cmd.Action {
		case client.ActionHelp:
			fmt.Println(client.Help)
		case client.ActionExit:
			fmt.Println("Bye")
			return
		case client.ActionNew:
			ls.Forget()
			_ = ls.Save()
			fmt.Println("Started a new conversation")
		case client.ActionLookup:
			res, err := api.Lookup(cmd.Args["email"])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(b))
		case client.ActionReview:
			res, err := api.Review(cmd.Args["email"], cmd.Args["status"], cmd.Args["notes"], reviewer)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(b))
		default:
			out, err := api.Send(ls, cmd)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			_ = ls.Save()
			client.Render(os.Stdout, out)
		}
	}
}

// main parses command-line flags and starts the chat.
func main() {
	var (
		baseURL   string
		stateFile string
		caFile    string
		certFile  string
		keyFile   string
		reviewer  string
		showVer   bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&stateFile, "state", client.DefaultStateFile, "file that remembers the session")
	flag.StringVar(&caFile, "ca", "", "CA cert that signed the server certificate")
	flag.StringVar(&certFile, "cert", "", "reviewer client certificate")
	flag.StringVar(&keyFile, "key", "", "reviewer client key")
	flag.StringVar(&reviewer, "reviewer", os.Getenv("USER"), "reviewer name when no certificate is used")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("GophIntake Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	if caFile != "" || certFile != "" {
		c, err := client.NewHTTPClient(caFile, certFile, keyFile)
		if err != nil {
			log.Fatal(err)
		}
		httpClient = c
	}

	ls, err := client.Load(stateFile)
	if err != nil {
		log.Fatal(err)
	}

	repl(&client.API{HTTP: httpClient, BaseURL: baseURL, Retries: 2}, ls, reviewer)
}
