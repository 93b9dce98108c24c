// Command seedcheck renders the startup fixture as tables, so a broken
// seed file is caught before it takes the server down at boot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"chat-hub/internal"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	seedPath := flag.String("seed", "seed.yaml", "Path to the seed file")
	flag.Parse()

	seed, err := internal.LoadSeed(*seedPath)
	if err != nil {
		log.Fatalf("Seed file rejected: %v", err)
	}

	color.Green.Printf("Seed file OK: %s\n\n", *seedPath)

	color.Bold.Println("Accounts")
	accounts := newTable([]string{"Username", "Password"})
	for _, acct := range seed.Accounts {
		accounts.Append([]string{acct.Username, strings.Repeat("*", len(acct.Password))})
	}
	accounts.Render()
	fmt.Println()

	color.Bold.Println("Channels")
	channels := newTable([]string{"Name", "Access", "Topic", "Admins", "Banned"})
	for _, ch := range seed.Channels {
		access := "public"
		if ch.Password != "" {
			access = "password"
		}
		channels.Append([]string{
			ch.Name,
			access,
			ch.Topic,
			strings.Join(ch.Admins, ", "),
			strings.Join(ch.Banned, ", "),
		})
	}
	channels.Render()
	fmt.Println()

	if len(seed.CensoredWords) == 0 {
		color.Yellow.Println("No censored words: moderation disabled")
		return
	}
	color.Bold.Printf("Censored words (%d): ", len(seed.CensoredWords))
	fmt.Println(strings.Join(seed.CensoredWords, ", "))
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
