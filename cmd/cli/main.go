package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"recipehub/internal/grpcserver"
	"recipehub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type cli struct {
	api       apiClient
	tokenPath string
	out       io.Writer
}

func main() {
	global := flag.NewFlagSet("recipehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		api:       apiClient{HTTP: &http.Client{Timeout: 15 * time.Second}, Base: *baseURL},
		tokenPath: *tokenPath,
		out:       os.Stdout,
	}
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := args[min(2, len(args)):]

	var err error
	switch args[0] {
	case "auth":
		err = c.auth(ctx, sub, rest)
	case "recipes":
		err = c.recipes(ctx, sub, rest)
	case "ingredients":
		err = c.ingredients(ctx, args[1:])
	case "favorite":
		err = c.relation(ctx, "favorite", sub, rest)
	case "cart":
		err = c.cart(ctx, sub, rest)
	case "follow":
		err = c.follow(ctx, sub, rest)
	case "feed":
		err = c.feed(ctx, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (c *cli) authed() error {
	token, err := readToken(c.tokenPath)
	if err != nil {
		return fmt.Errorf("token not found, please login: %w", err)
	}
	if token == "" {
		return fmt.Errorf("token empty, please login")
	}
	c.api.Token = token
	return nil
}

func (c *cli) auth(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			return fmt.Errorf("email and password are required")
		}
		if err := c.login(ctx, *email, *password); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(c.out, "logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		username := fs.String("username", "", "username")
		first := fs.String("first-name", "", "first name")
		last := fs.String("last-name", "", "last name")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		payload := map[string]string{
			"email":      *email,
			"username":   *username,
			"first_name": *first,
			"last_name":  *last,
			"password":   *password,
		}
		var user models.User
		if err := c.api.do(ctx, http.MethodPost, "/api/users/", payload, &user); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		if err := c.login(ctx, *email, *password); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "registered %s (id %s) and logged in\n", user.Username, user.ID)
	case "logout":
		if err := c.authed(); err == nil {
			// the local token is dropped even when the server call fails
			if err := c.api.do(ctx, http.MethodPost, "/api/auth/token/logout", nil, nil); err != nil {
				log.Printf("server logout: %v", err)
			}
		}
		if err := clearToken(c.tokenPath); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		_, _ = fmt.Fprintln(c.out, "logged out")
	default:
		return fmt.Errorf("usage: recipehub auth <login|register|logout>")
	}
	return nil
}

func (c *cli) login(ctx context.Context, email, password string) error {
	var resp tokenData
	payload := map[string]string{"email": email, "password": password}
	if err := c.api.do(ctx, http.MethodPost, "/api/auth/token/login", payload, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := saveToken(c.tokenPath, resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (c *cli) recipes(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("recipes list", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 0, "page size (0 for server default)")
		author := fs.String("author", "", "author id")
		tags := fs.String("tags", "", "comma-separated tag slugs")
		favorited := fs.Bool("favorited", false, "only my favorites")
		inCart := fs.Bool("cart", false, "only recipes in my shopping cart")
		_ = fs.Parse(args)

		qv := url.Values{}
		qv.Set("page", strconv.Itoa(*page))
		if *limit > 0 {
			qv.Set("limit", strconv.Itoa(*limit))
		}
		if *author != "" {
			qv.Set("author", *author)
		}
		for _, t := range strings.Split(*tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				qv.Add("tags", t)
			}
		}
		if *favorited || *inCart {
			if err := c.authed(); err != nil {
				return err
			}
		}
		if *favorited {
			qv.Set("is_favorited", "1")
		}
		if *inCart {
			qv.Set("is_in_shopping_cart", "1")
		}
		// a saved token is optional here; it only fills the per-user flags
		if c.api.Token == "" {
			c.api.Token, _ = readToken(c.tokenPath)
		}

		var resp models.Page[models.Recipe]
		if err := c.api.do(ctx, http.MethodGet, "/api/recipes/?"+qv.Encode(), nil, &resp); err != nil {
			return fmt.Errorf("list recipes: %w", err)
		}
		return c.print(resp)
	case "show":
		id, err := idFlag("recipes show", args)
		if err != nil {
			return err
		}
		c.api.Token, _ = readToken(c.tokenPath)
		var r models.Recipe
		if err := c.api.do(ctx, http.MethodGet, "/api/recipes/"+id, nil, &r); err != nil {
			return fmt.Errorf("show recipe: %w", err)
		}
		return c.print(r)
	case "create":
		fs := flag.NewFlagSet("recipes create", flag.ExitOnError)
		file := fs.String("file", "", "JSON file with name, text, image, cooking_time, tags and ingredients")
		_ = fs.Parse(args)
		if *file == "" {
			return fmt.Errorf("file is required")
		}
		if err := c.authed(); err != nil {
			return err
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse %s: %w", *file, err)
		}
		var r models.Recipe
		if err := c.api.do(ctx, http.MethodPost, "/api/recipes/", payload, &r); err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return c.print(r)
	case "delete":
		id, err := idFlag("recipes delete", args)
		if err != nil {
			return err
		}
		if err := c.authed(); err != nil {
			return err
		}
		if err := c.api.do(ctx, http.MethodDelete, "/api/recipes/"+id, nil, nil); err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		_, _ = fmt.Fprintln(c.out, "deleted")
	default:
		return fmt.Errorf("usage: recipehub recipes <list|show|create|delete>")
	}
	return nil
}

func (c *cli) ingredients(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingredients", flag.ExitOnError)
	name := fs.String("name", "", "name prefix")
	_ = fs.Parse(args)

	var items []models.Ingredient
	if err := c.api.do(ctx, http.MethodGet, "/api/ingredients/?name="+url.QueryEscape(*name), nil, &items); err != nil {
		return fmt.Errorf("list ingredients: %w", err)
	}
	return c.print(items)
}

// relation toggles a favorite or shopping_cart entry for a recipe.
func (c *cli) relation(ctx context.Context, kind, sub string, args []string) error {
	path := kind
	if kind == "cart" {
		path = "shopping_cart"
	}
	var method string
	switch sub {
	case "add":
		method = http.MethodPost
	case "remove":
		method = http.MethodDelete
	default:
		return fmt.Errorf("usage: recipehub %s <add|remove> -id <recipe id>", kind)
	}
	id, err := idFlag(kind+" "+sub, args)
	if err != nil {
		return err
	}
	if err := c.authed(); err != nil {
		return err
	}
	var short models.RecipeShort
	if err := c.api.do(ctx, method, "/api/recipes/"+id+"/"+path, nil, &short); err != nil {
		return fmt.Errorf("%s %s: %w", kind, sub, err)
	}
	if method == http.MethodPost {
		return c.print(short)
	}
	_, _ = fmt.Fprintln(c.out, "removed")
	return nil
}

func (c *cli) cart(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "add", "remove":
		return c.relation(ctx, "cart", sub, args)
	case "list":
		fs := flag.NewFlagSet("cart list", flag.ExitOnError)
		addr := fs.String("grpc", "127.0.0.1:9090", "gRPC server address")
		_ = fs.Parse(args)
		if err := c.authed(); err != nil {
			return err
		}
		conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dial %s: %w", *addr, err)
		}
		defer conn.Close()

		resp, err := grpcserver.Client{Conn: conn, Token: c.api.Token}.GetShoppingList(ctx)
		if err != nil {
			return fmt.Errorf("get shopping list: %w", err)
		}
		for _, l := range resp.Lines {
			_, _ = fmt.Fprintln(c.out, l)
		}
	case "download":
		fs := flag.NewFlagSet("cart download", flag.ExitOnError)
		out := fs.String("out", "shopping_list.pdf", "output PDF path")
		_ = fs.Parse(args)
		if err := c.authed(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		n, err := c.api.download(ctx, "/api/recipes/download_shopping_cart", f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(*out)
			return fmt.Errorf("download shopping list: %w", err)
		}
		_, _ = fmt.Fprintf(c.out, "saved %d bytes to %s\n", n, *out)
	default:
		return fmt.Errorf("usage: recipehub cart <add|remove|list|download>")
	}
	return nil
}

func (c *cli) follow(ctx context.Context, sub string, args []string) error {
	if sub == "list" {
		if err := c.authed(); err != nil {
			return err
		}
		var resp models.Page[models.Subscription]
		if err := c.api.do(ctx, http.MethodGet, "/api/users/subscriptions", nil, &resp); err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		return c.print(resp)
	}

	var method string
	switch sub {
	case "add":
		method = http.MethodPost
	case "remove":
		method = http.MethodDelete
	default:
		return fmt.Errorf("usage: recipehub follow <add|remove|list>")
	}
	id, err := idFlag("follow "+sub, args)
	if err != nil {
		return err
	}
	if err := c.authed(); err != nil {
		return err
	}
	var s models.Subscription
	if err := c.api.do(ctx, method, "/api/users/"+id+"/subscribe", nil, &s); err != nil {
		return fmt.Errorf("follow %s: %w", sub, err)
	}
	if method == http.MethodPost {
		return c.print(s)
	}
	_, _ = fmt.Fprintln(c.out, "unfollowed")
	return nil
}

func (c *cli) feed(ctx context.Context, sub string, args []string) error {
	if sub != "listen" {
		return fmt.Errorf("usage: recipehub feed listen [-addr host:port | -ws]")
	}
	fs := flag.NewFlagSet("feed listen", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
	ws := fs.Bool("ws", false, "use the /ws endpoint on the API host instead of TCP")
	pretty := fs.Bool("pretty", true, "pretty print JSON events")
	_ = fs.Parse(args)

	for {
		var err error
		if *ws {
			var endpoint string
			if endpoint, err = websocketURL(c.api.Base, "/ws"); err != nil {
				return err
			}
			err = listenWS(ctx, endpoint, c.out, *pretty)
		} else {
			err = listenTCP(ctx, *addr, c.out, *pretty)
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("[feed] disconnected: %v", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func idFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.String("id", "", "id")
	_ = fs.Parse(args)
	if *id == "" {
		return "", fmt.Errorf("%s: id is required", name)
	}
	return url.PathEscape(*id), nil
}

func (c *cli) print(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

func printUsage() {
	fmt.Println("recipehub [-api url] [-token path] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  recipes list|show|create|delete")
	fmt.Println("  ingredients [-name prefix]")
	fmt.Println("  favorite add|remove")
	fmt.Println("  cart add|remove|list|download")
	fmt.Println("  follow add|remove|list")
	fmt.Println("  feed listen")
}
