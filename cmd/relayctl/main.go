// relayctl is a small operator tool for inspecting a running relay:
// room tables, snapshots, pending-action polls, and process health.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/murat48/zktexasholdem-sub001/domain"
)

type Config struct {
	RelayURL string `env:"RELAY_URL,default=http://localhost:8080"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "rooms"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var err error
	switch command {
	case "rooms":
		err = listRooms(client, config.RelayURL)
	case "snapshot":
		if flag.Arg(1) == "" {
			err = fmt.Errorf("usage: relayctl snapshot CODE")
		} else {
			err = printJSON(client, config.RelayURL+"/v1/rooms/"+flag.Arg(1))
		}
	case "poll":
		err = pollAction(client, config.RelayURL, flag.Arg(1))
	case "health":
		err = printJSON(client, config.RelayURL+"/healthz")
	default:
		err = fmt.Errorf("unknown command %q (want rooms, snapshot, poll or health)", command)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func listRooms(client *http.Client, baseURL string) error {
	var body struct {
		Rooms []domain.RoomView `json:"rooms"`
	}
	if err := fetch(client, baseURL+"/v1/rooms", &body); err != nil {
		return err
	}

	color.Green.Printf("%d active room(s)\n", len(body.Rooms))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Code", "Host", "Guest", "State", "Pending", "Subs", "Age"})
	rows := lo.Map(body.Rooms, func(v domain.RoomView, _ int) []string {
		guest := "-"
		if v.Guest != nil {
			guest = shorten(v.Guest.Address)
		}
		return []string{
			string(v.Code),
			shorten(v.Host.Address),
			guest,
			mark(v.HasState),
			mark(v.HasPending),
			fmt.Sprintf("%d", v.Subscribers),
			time.Since(v.CreatedAt).Truncate(time.Second).String(),
		}
	})
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func pollAction(client *http.Client, baseURL, code string) error {
	if code == "" {
		return fmt.Errorf("usage: relayctl poll CODE")
	}
	resp, err := client.Post(baseURL+"/v1/rooms/"+code+"/action", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Action json.RawMessage `json:"action"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.Action == nil {
		color.Yellow.Println("no pending action")
		return nil
	}
	color.Green.Println(string(body.Action))
	return nil
}

func printJSON(client *http.Client, url string) error {
	var body json.RawMessage
	if err := fetch(client, url, &body); err != nil {
		return err
	}
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func fetch(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func shorten(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + ".." + address[len(address)-4:]
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
