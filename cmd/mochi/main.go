// Command mochi reviews due flashcards out of the local Mochi store
// and syncs the outcomes back to the Mochi API. Run without arguments
// for the command list.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/HartreeWorks/skill--mochi-srs/internal/cli"
	"github.com/HartreeWorks/skill--mochi-srs/internal/config"
	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
	"github.com/HartreeWorks/skill--mochi-srs/internal/due"
	"github.com/HartreeWorks/skill--mochi-srs/internal/mochi"
	"github.com/HartreeWorks/skill--mochi-srs/internal/session"
	"github.com/HartreeWorks/skill--mochi-srs/internal/store"
	"github.com/HartreeWorks/skill--mochi-srs/internal/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "decks":
		err = runDecks(ctx, args)
	case "cards":
		err = runCards(ctx, args)
	case "due":
		err = runDue(ctx, args)
	case "create":
		err = runCreate(ctx, args)
	case "create-deck":
		err = runCreateDeck(ctx, args)
	case "delete":
		err = runDelete(ctx, args)
	case "search-deck":
		err = runSearchDeck(ctx, args)
	case "review":
		err = runReview(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: mochi <command> [flags]

Commands:
  review       Review due cards in the terminal
  serve        Review due cards in the browser
  due          Show cards due according to the remote API
  decks        List all decks
  cards        List cards, optionally by deck
  create       Create a card
  create-deck  Create a deck
  delete       Delete a card
  search-deck  Find a deck by partial name

Set MOCHI_API_KEY (environment or .env file) for remote commands.
`)
}

// newFlagSet registers the shared config flags for a subcommand.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("api-key", "", "Mochi API key")
	fs.String("base-url", "https://app.mochi.cards/api", "Mochi API root")
	fs.String("db", "", "Path to the local Mochi database")
	return fs
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	storePath, err := store.DefaultPath()
	if err != nil {
		slog.Warn("could not determine default store path", "error", err)
	}
	return config.Load(config.Defaults(storePath), fs)
}

// loadDueCards reads the local store and resolves due cards. Store
// access failures are reported and treated as nothing due rather than
// propagated.
func loadDueCards(cfg *config.Config, deckID string) []domain.Card {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Warn("cannot read local store, treating as no due cards", "error", err)
		return nil
	}
	defer db.Close()

	cards, err := db.ReadCards()
	if err != nil {
		slog.Warn("cannot enumerate cards, treating as no due cards", "error", err)
		return nil
	}
	return due.NewResolver(nil).Resolve(cards, deckID, time.Now())
}

// resolveDeck turns the configured deck id or partial name into a
// single deck id. Ambiguity is an error listed for the user; the due
// resolver only ever sees a resolved id.
func resolveDeck(ctx context.Context, client *mochi.Client, cfg *config.Config) (deckID, deckName string, err error) {
	if cfg.Review.Deck != "" {
		return cfg.Review.Deck, "", nil
	}
	if cfg.Review.DeckName == "" {
		return "", "", nil
	}

	matches, err := client.SearchDecks(ctx, cfg.Review.DeckName)
	if err != nil {
		return "", "", fmt.Errorf("failed to search decks: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("no deck found matching %q", cfg.Review.DeckName)
	case 1:
		return matches[0].ID, matches[0].Name, nil
	}

	var names []string
	for _, deck := range matches {
		names = append(names, fmt.Sprintf("%s (ID: %s)", deck.Name, deck.ID))
	}
	return "", "", fmt.Errorf("multiple decks match %q:\n  %s",
		cfg.Review.DeckName, strings.Join(names, "\n  "))
}

func runReview(ctx context.Context, args []string) error {
	fs := newFlagSet("review")
	fs.StringP("deck", "d", "", "Deck ID to review")
	fs.StringP("deck-name", "n", "", "Deck name to review")
	fs.IntP("limit", "l", 0, "Maximum number of cards to review")
	countOnly := fs.BoolP("count", "c", false, "Show due count only")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	client := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL)
	deckID, _, err := resolveDeck(ctx, client, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Loading due cards from local database...")
	cards := loadDueCards(cfg, deckID)

	if *countOnly {
		// Local-only: no credentials needed.
		fmt.Printf("Due cards: %d\n", len(cards))
		return nil
	}
	if cfg.API.Key == "" {
		return mochi.ErrNoAPIKey
	}

	eng := session.New(cards, client, cfg.Review.Limit)
	return cli.New(os.Stdin, os.Stdout).Run(ctx, eng)
}

func runServe(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	fs.StringP("deck", "d", "", "Deck ID to review")
	fs.StringP("deck-name", "n", "", "Deck name to review")
	fs.IntP("limit", "l", 0, "Maximum number of cards to review")
	fs.IntP("port", "p", 5111, "Server port")
	fs.Duration("idle-timeout", 5*time.Minute, "Shut down after this long without a request")
	fs.Bool("no-browser", false, "Don't auto-open the browser")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	if cfg.API.Key == "" {
		return mochi.ErrNoAPIKey
	}
	client := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL)
	deckID, deckName, err := resolveDeck(ctx, client, cfg)
	if err != nil {
		return err
	}
	if deckName == "" {
		deckName = "All Decks"
	}

	fmt.Println("Loading due cards from local database...")
	cards := loadDueCards(cfg, deckID)
	if len(cards) == 0 {
		fmt.Println("No cards due for review!")
		return nil
	}
	fmt.Printf("Found %d card(s) due for review.\n", len(cards))

	eng := session.New(cards, client, cfg.Review.Limit)
	eng.Start()

	server, err := web.NewServer(eng, deckName, cfg.Server.IdleTimeout)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	if !cfg.Server.NoBrowser {
		if err := web.OpenBrowser(url); err != nil {
			slog.Warn("could not open browser", "error", err)
		}
	}
	fmt.Printf("Review server running on %s\n", url)

	return server.Serve(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
}

func runDecks(ctx context.Context, args []string) error {
	fs := newFlagSet("decks")
	showIDs := fs.Bool("ids", false, "Show deck IDs on separate lines")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	decks, err := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL).ListDecks(ctx)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Println("No decks found.")
		return nil
	}

	fmt.Printf("Found %d deck(s):\n\n", len(decks))
	for _, deck := range decks {
		status := ""
		if deck.Archived {
			status = " [archived]"
		}
		if *showIDs {
			fmt.Printf("  - %s%s\n    ID: %s\n", deck.Name, status, deck.ID)
		} else {
			fmt.Printf("  - %s%s (ID: %s)\n", deck.Name, status, deck.ID)
		}
	}
	return nil
}

func runCards(ctx context.Context, args []string) error {
	fs := newFlagSet("cards")
	fs.StringP("deck", "d", "", "Filter by deck ID")
	fs.IntP("limit", "l", 10, "Number of cards to show")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	client := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL)
	cards, err := client.ListCards(ctx, cfg.Review.Deck, cfg.Review.Limit)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println("No cards found.")
		return nil
	}

	fmt.Printf("Found %d card(s):\n\n", len(cards))
	for _, card := range cards {
		fmt.Printf("  - %s\n    ID: %s\n\n", preview(card.Content, 80), card.ID)
	}
	return nil
}

func runDue(ctx context.Context, args []string) error {
	fs := newFlagSet("due")
	fs.StringP("deck", "d", "", "Filter by deck ID")
	date := fs.String("date", "", "Check for a specific date (YYYY-MM-DD)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	client := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL)
	cards, err := client.DueCards(ctx, cfg.Review.Deck, *date)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println("No cards due for review!")
		return nil
	}

	fmt.Printf("Cards due: %d\n\n", len(cards))
	for i, card := range cards {
		if i == 10 {
			break
		}
		fmt.Printf("  - %s\n", preview(card.Content, 60))
	}
	return nil
}

func runCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	fs.StringP("deck", "d", "", "Deck ID")
	fs.StringP("deck-name", "n", "", "Deck name (searches for a matching deck)")
	content := fs.StringP("content", "c", "", "Card content (markdown)")
	templateID := fs.StringP("template", "t", "", "Template ID")
	reverse := fs.BoolP("reverse", "r", false, "Enable reverse review")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *content == "" {
		return fmt.Errorf("--content is required")
	}

	client := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL)
	deckID, _, err := resolveDeck(ctx, client, cfg)
	if err != nil {
		return err
	}
	if deckID == "" {
		return fmt.Errorf("must specify --deck or --deck-name")
	}

	// Shells pass literal backslash-n; cards want real newlines.
	card, err := client.CreateCard(ctx, deckID, strings.ReplaceAll(*content, `\n`, "\n"), *templateID, *reverse)
	if err != nil {
		return err
	}
	fmt.Printf("Created card successfully!\nID: %s\n", card.ID)
	return nil
}

func runCreateDeck(ctx context.Context, args []string) error {
	fs := newFlagSet("create-deck")
	name := fs.StringP("name", "n", "", "Deck name")
	parent := fs.StringP("parent", "p", "", "Parent deck ID")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	deck, err := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL).CreateDeck(ctx, *name, *parent)
	if err != nil {
		return err
	}
	fmt.Printf("Created deck: %s\nID: %s\n", deck.Name, deck.ID)
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mochi delete <card-id>")
	}

	cardID := fs.Arg(0)
	if err := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL).DeleteCard(ctx, cardID); err != nil {
		return err
	}
	fmt.Printf("Deleted card: %s\n", cardID)
	return nil
}

func runSearchDeck(ctx context.Context, args []string) error {
	fs := newFlagSet("search-deck")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mochi search-deck <name>")
	}

	matches, err := mochi.NewClient(cfg.API.Key, cfg.API.BaseURL).SearchDecks(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		fmt.Printf("No deck found matching '%s'\n", fs.Arg(0))
	case 1:
		fmt.Printf("Found: %s\nID: %s\n", matches[0].Name, matches[0].ID)
	default:
		fmt.Printf("Multiple decks match '%s':\n", fs.Arg(0))
		for _, deck := range matches {
			fmt.Printf("  - %s (ID: %s)\n", deck.Name, deck.ID)
		}
	}
	return nil
}

// preview flattens and truncates card content for list output. The cut
// lands on a rune boundary so multibyte content stays intact.
func preview(content string, max int) string {
	flat := strings.ReplaceAll(content, "\n", " ")
	runes := []rune(flat)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return flat
}
