package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"lumenbot/internal/auth"
	"lumenbot/internal/config"
)

// Mints a bearer token for the /admin endpoints:
//
//	admintoken -subject ops@example.com
func main() {
	subject := flag.String("subject", "operator", "token subject")
	role := flag.String("role", "admin", "token role")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	token, exp, err := auth.Issue(*subject, *role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AdminTokenTTL)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires: %s\n", exp.Format("2006-01-02 15:04:05 MST"))
}
