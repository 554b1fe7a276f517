package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/service"
)

// issue-token mints a bearer token for local development and tests. Sign-in
// itself is handled by the identity provider.
func main() {
	var (
		userID string
		role   string
		perms  string
	)
	flag.StringVar(&userID, "user", "", "User ID to embed (prompted when empty)")
	flag.StringVar(&role, "role", model.RoleCandidate, "candidate or admin")
	flag.StringVar(&perms, "perms", "", "Comma-separated admin permissions; \"all\" grants every permission")
	flag.Parse()

	cfg := config.Load()
	reader := bufio.NewReader(os.Stdin)

	if userID == "" {
		fmt.Fprint(os.Stderr, "Enter User ID: ")
		line, _ := reader.ReadString('\n')
		userID = strings.TrimSpace(line)
	}
	if userID == "" {
		fmt.Fprintln(os.Stderr, "Error: User ID is required")
		os.Exit(1)
	}

	if os.Getenv("JWT_SECRET") == "" {
		fmt.Fprint(os.Stderr, "Enter JWT secret (empty keeps the default): ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading secret")
			os.Exit(1)
		}
		if s := strings.TrimSpace(string(secret)); s != "" {
			cfg.JWTSecret = s
		}
	}

	var permissions []string
	switch perms {
	case "":
	case "all":
		for _, p := range model.AllPermissions {
			permissions = append(permissions, string(p))
		}
	default:
		for _, p := range strings.Split(perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				permissions = append(permissions, p)
			}
		}
	}

	token, err := service.NewAuthService(cfg).GenerateToken(userID, role, permissions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
