package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/karming-leong/datacentric-assingment/pkg/api/client"
)

const defaultAPIBaseURL = "http://localhost:5000"

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout()
	case "items":
		err = commandItems(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*username) == "" {
		return errors.New("--username is required")
	}
	secret, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Register(ctx, *username, secret); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("user created; run 'supplies login' to sign in")
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*username) == "" {
		return errors.New("--username is required")
	}
	secret, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}
	cfg, client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	token, err := client.Login(ctx, *username, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandLogout() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AccessToken = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandItems(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: supplies items [list|search|add|update|delete]")
	}
	sub := args[0]
	switch sub {
	case "list":
		return itemsList(args[1:])
	case "search":
		return itemsSearch(args[1:])
	case "add":
		return itemsAdd(args[1:])
	case "update":
		return itemsUpdate(args[1:])
	case "delete":
		return itemsDelete(args[1:])
	default:
		return fmt.Errorf("unknown items command: %s", sub)
	}
}

func itemsList(args []string) error {
	fs := flag.NewFlagSet("items list", flag.ExitOnError)
	level := fs.Int("level", 0, "Primary level (1-6)")
	fs.Parse(args)
	if *level == 0 {
		return errors.New("--level is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := client.ListByLevel(ctx, token, *level)
	if err != nil {
		return err
	}
	printItems(items)
	return nil
}

func itemsSearch(args []string) error {
	fs := flag.NewFlagSet("items search", flag.ExitOnError)
	query := fs.String("q", "", "Text to match in name, type or comment")
	itemType := fs.String("type", "", "Exact item type")
	sortBy := fs.String("sort", "", "Sort by name|type|createdAt")
	level := fs.Int("level", 0, "Primary level (1-6)")
	fs.Parse(args)

	params := apiclient.SearchParams{Query: *query, Type: *itemType, Sort: *sortBy}
	if *level != 0 {
		params.Level = level
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := client.Search(ctx, token, params)
	if err != nil {
		return err
	}
	printItems(items)
	return nil
}

func itemsAdd(args []string) error {
	fs := flag.NewFlagSet("items add", flag.ExitOnError)
	name := fs.String("name", "", "Item name")
	itemType := fs.String("type", "", "Item type")
	level := fs.Int("level", 0, "Primary level (1-6)")
	comment := fs.String("comment", "", "Optional comment")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return errors.New("--name is required")
	}
	if strings.TrimSpace(*itemType) == "" {
		return errors.New("--type is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	item, err := client.CreateItem(ctx, token, apiclient.CreateItemInput{
		Name:         *name,
		Type:         *itemType,
		PrimaryLevel: *level,
		Comment:      *comment,
	})
	if err != nil {
		return err
	}
	fmt.Printf("item created: %s (%s)\n", item.ID, item.Name)
	return nil
}

func itemsUpdate(args []string) error {
	fs := flag.NewFlagSet("items update", flag.ExitOnError)
	id := fs.String("id", "", "Item identifier")
	name := fs.String("name", "", "New name")
	itemType := fs.String("type", "", "New type")
	comment := fs.String("comment", "", "New comment")
	acquired := fs.String("acquired", "", "Mark acquired (true|false)")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}
	var input apiclient.UpdateItemInput
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			input.Name = name
		case "type":
			input.Type = itemType
		case "comment":
			input.Comment = comment
		case "acquired":
			value, err := strconv.ParseBool(*acquired)
			if err != nil {
				parseErr = fmt.Errorf("--acquired must be true or false")
				return
			}
			input.Acquired = &value
		}
	})
	if parseErr != nil {
		return parseErr
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	item, err := client.UpdateItem(ctx, token, *id, input)
	if err != nil {
		return err
	}
	printItems([]apiclient.Item{item})
	return nil
}

func itemsDelete(args []string) error {
	fs := flag.NewFlagSet("items delete", flag.ExitOnError)
	id := fs.String("id", "", "Item identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.DeleteItem(ctx, token, *id); err != nil {
		return err
	}
	fmt.Println("item deleted")
	return nil
}

func printItems(items []apiclient.Item) {
	if len(items) == 0 {
		fmt.Println("no items")
		return
	}
	for _, item := range items {
		mark := " "
		if item.Acquired {
			mark = "x"
		}
		fmt.Printf("[%s]\t%s\t%d\t%s\t%s\t%s\n", mark, item.ID, item.PrimaryLevel, item.Type, item.Name, item.Comment)
	}
}

func passwordOrPrompt(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

// clientFor loads the saved config, applies an --api override and builds a client.
func clientFor(apiBase string) (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(apiBase) != "" {
		cfg.APIBaseURL = strings.TrimSpace(apiBase)
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func session() (*apiclient.Client, string, error) {
	cfg, client, err := clientFor("")
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please login first using 'supplies login'")
	}
	return client, token, nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "supplies", "config.json"), nil
}

func printUsage() {
	fmt.Printf("supplies CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	supplies register --username alice [--password secret] [--api http://localhost:5000]
	supplies login --username alice [--password secret] [--api http://localhost:5000]
	supplies logout
	supplies items list --level N
	supplies items search [--q text] [--type type] [--sort name|type|createdAt] [--level N]
	supplies items add --name <name> --type <type> --level N [--comment text]
	supplies items update --id <item-id> [--name n] [--type t] [--comment c] [--acquired true|false]
	supplies items delete --id <item-id>
	supplies version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
