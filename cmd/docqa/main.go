package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docqa/internal/client"
	"docqa/internal/config"
	"docqa/internal/log"
	"docqa/internal/server"
	"docqa/internal/tui"
	"docqa/internal/version"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(os.Args[2:])
	case "upload":
		uploadCmd(os.Args[2:])
	case "ask":
		askCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "status":
		statusCmd()
	case "clear":
		clearCmd()
	case "chats":
		chatsCmd(os.Args[2:])
	case "chat":
		chatCmd()
	case "version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("docqa - document question answering over hybrid retrieval")
	fmt.Println("usage:")
	fmt.Println("  docqa serve [--addr :8080] [--config docqa.yaml]")
	fmt.Println("  docqa upload <file.pdf|file.txt>")
	fmt.Println("  docqa ask [--chat <id>] [--k N] [--stream] \"<question>\"")
	fmt.Println("  docqa search [--k N] \"<query>\"")
	fmt.Println("  docqa status")
	fmt.Println("  docqa clear")
	fmt.Println("  docqa chats [list|show <id>|rename <id> <title>|rm <id> [--permanent]]")
	fmt.Println("  docqa chat")
	fmt.Println("  docqa version")
}

func serverURL() string {
	if v := os.Getenv("DOCQA_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides config)")
	cfgPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		fatal(err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := server.Run(cfg, log.New()); err != nil {
		fatal(err)
	}
}

func uploadCmd(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: docqa upload <file>")
		os.Exit(1)
	}
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	res, err := client.New(serverURL()).Upload(ctx, args[0])
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s: %d chunks indexed (%d bytes)\n", res.Filename, res.ChunksCount, res.FileSize)
	if res.IsUpdate {
		fmt.Printf("replaced previous document (%d chunks)\n", res.PreviousChunks)
	}
}

func askCmd(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	chatID := fs.String("chat", "", "conversation ID to continue")
	k := fs.Int("k", 0, "number of context chunks")
	stream := fs.Bool("stream", false, "stream the answer token by token")
	_ = fs.Parse(args)
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("usage: docqa ask [--chat <id>] [--k N] [--stream] \"<question>\"")
		os.Exit(1)
	}
	api := client.New(serverURL())
	if *stream {
		res, err := api.AskStream(context.Background(), question, *chatID, *k, func(tok string) {
			fmt.Print(tok)
		})
		if err != nil {
			fmt.Println()
			fatal(err)
		}
		fmt.Printf("\n\n[chat %s]\n", res.ChatID)
		return
	}
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	res, err := api.Ask(ctx, question, *chatID, *k)
	if err != nil {
		fatal(err)
	}
	fmt.Println(res.Answer)
	fmt.Printf("\n[chat %s]\n", res.ChatID)
}

func searchCmd(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	k := fs.Int("k", 0, "number of results")
	_ = fs.Parse(args)
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("usage: docqa search [--k N] \"<query>\"")
		os.Exit(1)
	}
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	results, err := client.New(serverURL()).Search(ctx, query, *k)
	if err != nil {
		fatal(err)
	}
	for i, r := range results {
		preview := r.Text
		if len(preview) > 120 {
			preview = preview[:120] + "..."
		}
		fmt.Printf("%d. [%.4f] %s\n", i+1, r.Score, preview)
	}
	if len(results) == 0 {
		fmt.Println("no matches")
	}
}

func statusCmd() {
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	st, err := client.New(serverURL()).Status(ctx)
	if err != nil {
		fatal(err)
	}
	if !st.HasDocument {
		fmt.Println("no document loaded")
		return
	}
	fmt.Printf("%s: %d chunks (%d bytes)\n", st.Filename, st.ChunksCount, st.FileSize)
}

func clearCmd() {
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	if err := client.New(serverURL()).ClearDocument(ctx); err != nil {
		fatal(err)
	}
	fmt.Println("document cleared")
}

func chatsCmd(args []string) {
	api := client.New(serverURL())
	ctx, cancel := client.WithTimeout(context.Background())
	defer cancel()
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		list, err := api.Chats(ctx, 0, 0)
		if err != nil {
			fatal(err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tMSGS\tUPDATED")
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Title, c.MessageCount, c.Updated.Format("2006-01-02 15:04"))
		}
		tw.Flush()
	case "show":
		if len(args) < 2 {
			fmt.Println("usage: docqa chats show <id>")
			os.Exit(1)
		}
		conv, err := api.Chat(ctx, args[1])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s (%s)\n\n", conv.Title, conv.ID)
		for _, m := range conv.Messages {
			fmt.Printf("%s: %s\n\n", m.Role, m.Content)
		}
	case "rename":
		if len(args) < 3 {
			fmt.Println("usage: docqa chats rename <id> <title>")
			os.Exit(1)
		}
		conv, err := api.RenameChat(ctx, args[1], strings.Join(args[2:], " "))
		if err != nil {
			fatal(err)
		}
		fmt.Printf("renamed to %q\n", conv.Title)
	case "rm":
		if len(args) < 2 {
			fmt.Println("usage: docqa chats rm <id> [--permanent]")
			os.Exit(1)
		}
		permanent := len(args) > 2 && args[2] == "--permanent"
		if err := api.DeleteChat(ctx, args[1], permanent); err != nil {
			fatal(err)
		}
		fmt.Println("deleted")
	default:
		fmt.Println("usage: docqa chats [list|show|rename|rm]")
		os.Exit(1)
	}
}

func chatCmd() {
	api := client.New(serverURL())
	ctx, cancel := client.WithTimeout(context.Background())
	st, err := api.Status(ctx)
	cancel()
	if err != nil {
		fatal(err)
	}
	doc := "no document loaded - upload one with `docqa upload`"
	if st.HasDocument {
		doc = fmt.Sprintf("document: %s (%d chunks)", st.Filename, st.ChunksCount)
	}
	p := tea.NewProgram(tui.New(api, doc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}
