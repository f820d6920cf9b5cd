package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bookreviews/internal/grpcserver"
	"bookreviews/internal/notify"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

type reviewList struct {
	Items []models.Review `json:"items"`
}

type feedbackList struct {
	Items []models.Feedback `json:"items"`
}

type reviewFeedbackList struct {
	Items []models.ReviewFeedback `json:"items"`
}

type createdResponse struct {
	ID string `json:"id"`
}

func main() {
	global := flag.NewFlagSet("bookreviews", flag.ExitOnError)
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

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "reviews":
		handleReviews(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "feedback":
		handleFeedback(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "sync":
		handleSync(sub, rest)
	case "watch":
		handleWatch(*baseURL, args[1:])
	case "notify":
		handleNotify(sub, rest)
	case "grpc":
		handleGRPC(ctx, *tokenPath, sub, rest)
	case "export":
		handleExport(ctx, client, *baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("✅ logged in as %s\n", resp.User.ID)
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		name := fs.String("name", "", "display name (optional)")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"name": *name, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("✅ registered and logged in as %s\n", resp.User.ID)
	case "me":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/auth/me", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("me failed: %v", err)
		}
		printJSON(resp)
	case "logout":
		if token, err := readToken(tokenPath); err == nil && token != "" {
			if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout failed: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: bookreviews auth <login|register|me|logout>")
	}
}

func handleReviews(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		var resp reviewList
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/reviews", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printReviews(resp.Items)
	case "mine":
		var resp reviewList
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/reviews/mine", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printReviews(resp.Items)
	case "user":
		fs := flag.NewFlagSet("reviews user", flag.ExitOnError)
		id := fs.String("id", "", "user id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("user id is required")
		}
		var resp reviewList
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/"+url.PathEscape(*id)+"/reviews", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printReviews(resp.Items)
	case "show":
		fs := flag.NewFlagSet("reviews show", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}
		var resp models.Review
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/reviews/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "create":
		fs := flag.NewFlagSet("reviews create", flag.ExitOnError)
		title := fs.String("title", "", "book title")
		author := fs.String("author", "", "author")
		rating := fs.Int("rating", 5, "rating 1-5")
		comments := fs.String("comments", "", "your review")
		_ = fs.Parse(args)
		if *title == "" || *author == "" {
			log.Fatal("title and author are required")
		}

		payload := map[string]any{"bookTitle": *title, "author": *author, "rating": *rating, "comments": *comments}
		var resp createdResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/reviews", mustToken(tokenPath), payload, &resp); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		fmt.Printf("✅ review %s created\n", resp.ID)
	default:
		log.Fatal("usage: bookreviews reviews <list|mine|user|show|create>")
	}
}

func handleFeedback(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("feedback list", flag.ExitOnError)
		reviewID := fs.String("review", "", "review id")
		_ = fs.Parse(args)
		if *reviewID == "" {
			log.Fatal("review id is required")
		}
		var resp feedbackList
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/reviews/"+url.PathEscape(*reviewID)+"/feedback", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		for _, f := range resp.Items {
			fmt.Printf("[%s] %s (%s): %s\n", f.CreatedAt.Local().Format(time.DateTime), f.UserName, f.Type, f.Message)
		}
	case "mine":
		var resp reviewFeedbackList
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/feedback/mine", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		for _, f := range resp.Items {
			fmt.Printf("[%s] %q ← %s (%s): %s\n", f.CreatedAt.Local().Format(time.DateTime), f.ReviewTitle, f.UserName, f.Type, f.Message)
		}
	case "add":
		fs := flag.NewFlagSet("feedback add", flag.ExitOnError)
		reviewID := fs.String("review", "", "review id")
		message := fs.String("message", "", "message")
		kind := fs.String("type", string(models.FeedbackComment), "comment or edit_suggestion")
		_ = fs.Parse(args)
		if *reviewID == "" || *message == "" {
			log.Fatal("review id and message are required")
		}

		payload := map[string]string{"reviewId": *reviewID, "message": *message, "type": *kind}
		var resp createdResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/feedback", mustToken(tokenPath), payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		fmt.Printf("✅ feedback %s added\n", resp.ID)
	default:
		log.Fatal("usage: bookreviews feedback <list|mine|add>")
	}
}

func handleSync(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP sync server address")
		topics := fs.String("topics", "", "comma-separated topics")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		if err := runSyncTCP(*addr, splitTopics(*topics), *pretty); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
	default:
		log.Fatal("usage: bookreviews sync listen")
	}
}

func handleWatch(baseURL string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	topics := fs.String("topics", "", "comma-separated topics")
	_ = fs.Parse(args)

	wsURL, err := websocketURL(baseURL, "/ws", splitTopics(*topics))
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	if err := runWebSocket(wsURL); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func handleNotify(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("notify listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7071", "UDP notify server address")
		userID := fs.String("user", "", "your user id")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user id is required")
		}
		if err := runNotifyUDP(*addr, *userID); err != nil {
			log.Fatalf("notify failed: %v", err)
		}
	default:
		log.Fatal("usage: bookreviews notify listen")
	}
}

func handleGRPC(ctx context.Context, tokenPath, sub string, args []string) {
	fs := flag.NewFlagSet("grpc", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9090", "gRPC server address")
	_ = fs.Parse(args)

	client, err := grpcserver.Dial(*addr)
	if err != nil {
		log.Fatalf("grpc dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch sub {
	case "list":
		resp, err := client.ListAll(ctx)
		if err != nil {
			log.Fatalf("grpc list failed: %v", err)
		}
		printReviews(resp.Items)
	case "mine":
		resp, err := client.WithToken(mustToken(tokenPath)).MyReviews(ctx)
		if err != nil {
			log.Fatalf("grpc mine failed: %v", err)
		}
		printReviews(resp.Items)
	case "feedback":
		resp, err := client.WithToken(mustToken(tokenPath)).GetMyReviewsFeedback(ctx)
		if err != nil {
			log.Fatalf("grpc feedback failed: %v", err)
		}
		printJSON(resp.Items)
	default:
		log.Fatal("usage: bookreviews grpc <list|mine|feedback> [-addr host:port]")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output file")
	_ = fs.Parse(args)

	var resp reviewList
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/reviews", "", nil, &resp); err != nil {
		log.Fatalf("fetch reviews failed: %v", err)
	}

	switch sub {
	case "json":
		path := *out
		if path == "" {
			path = "reviews.json"
		}
		if err := writeJSON(path, resp.Items); err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		log.Printf("✅ exported %d reviews to %s", len(resp.Items), path)
	case "csv":
		path := *out
		if path == "" {
			path = "reviews.csv"
		}
		if err := writeCSV(path, resp.Items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d reviews to %s", len(resp.Items), path)
	default:
		log.Fatal("usage: bookreviews export <json|csv>")
	}
}

func runSyncTCP(addr string, topics []string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	if len(topics) > 0 {
		b, _ := json.Marshal(synchub.SubscribeMessage{Type: synchub.SubscribeMessageType, Topics: topics})
		if _, err := conn.Write(append(b, '\n')); err != nil {
			return err
		}
	}

	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Print(string(msg))
	}
}

func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	b, _ := json.Marshal(notify.RegisterMessage{Type: notify.RegisterMessageType, UserID: userID})
	if _, err := conn.Write(b); err != nil {
		return err
	}
	log.Printf("[notify] registered %s with %s", userID, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		var msg notify.FeedbackReceivedMessage
		if err := json.Unmarshal(buf[:n], &msg); err != nil || msg.Type != notify.FeedbackReceivedMessageType {
			fmt.Println(string(buf[:n]))
			continue
		}
		fmt.Printf("🔔 %s left a %s on %q\n", msg.From, msg.Kind, msg.ReviewTitle)
	}
}

func printReviews(items []models.Review) {
	if len(items) == 0 {
		fmt.Println("(no reviews)")
		return
	}
	for _, r := range items {
		fmt.Printf("%s  %s by %s  %s  (%s)\n", r.ID, r.BookTitle, r.Author, strings.Repeat("★", r.Rating), r.UserName)
		if r.Comments != "" {
			fmt.Printf("    %s\n", r.Comments)
		}
	}
}

func writeJSON(path string, items []models.Review) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Review) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "book_title", "author", "rating", "comments", "user_id", "user_name", "created_at",
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			item.ID,
			item.BookTitle,
			item.Author,
			strconv.Itoa(item.Rating),
			item.Comments,
			item.UserID,
			item.UserName,
			item.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func splitTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printUsage() {
	fmt.Println("bookreviews <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|me|logout")
	fmt.Println("  reviews list|mine|user|show|create")
	fmt.Println("  feedback list|mine|add")
	fmt.Println("  sync listen [-topics reviews,feedback:owner:<id>]")
	fmt.Println("  watch [-topics ...]")
	fmt.Println("  notify listen -user <id>")
	fmt.Println("  grpc list|mine|feedback")
	fmt.Println("  export json|csv")
}
