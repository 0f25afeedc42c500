package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tradebot-config/config"
	"tradebot-config/internal/auth"
)

func main() {
	fmt.Println("========================================")
	fmt.Println(" Configuration API Token Tool")
	fmt.Println("========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.AuthConfig.JWTSecret == "" {
		fmt.Println("AUTH_JWT_SECRET is not set, tokens cannot be signed")
		os.Exit(1)
	}
	jwtManager := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.Issuer)

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. Generate read-only token")
		fmt.Println("  2. Generate token allowed to run health checks")
		fmt.Println("  3. Validate a token")
		fmt.Println("  4. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			generateToken(reader, jwtManager, false)
		case "2":
			generateToken(reader, jwtManager, true)
		case "3":
			validateToken(reader, jwtManager)
		case "4":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func generateToken(reader *bufio.Reader, jwtManager *auth.JWTManager, canWrite bool) {
	fmt.Println("\n--- Generate Token ---")
	fmt.Print("Operator name: ")
	operator, _ := reader.ReadString('\n')
	operator = strings.TrimSpace(operator)
	if operator == "" {
		fmt.Println("Operator name is required")
		return
	}

	fmt.Print("Validity in hours (default 24): ")
	input, _ := reader.ReadString('\n')
	hours, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || hours <= 0 {
		hours = 24
	}

	token, err := jwtManager.GenerateAccessToken(auth.OperatorClaims{
		Operator: operator,
		CanWrite: canWrite,
	}, time.Duration(hours)*time.Hour)
	if err != nil {
		fmt.Printf("Failed to generate token: %v\n", err)
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("  Operator:   %s\n", operator)
	fmt.Printf("  Can write:  %t\n", canWrite)
	fmt.Printf("  Expires in: %dh\n", hours)
	fmt.Printf("  Token:      %s\n", token)
	fmt.Println("========================================")
}

func validateToken(reader *bufio.Reader, jwtManager *auth.JWTManager) {
	fmt.Println("\n--- Validate Token ---")
	fmt.Print("Token: ")
	token, _ := reader.ReadString('\n')

	claims, err := jwtManager.ValidateAccessToken(strings.TrimSpace(token))
	if err != nil {
		fmt.Printf("  INVALID: %v\n", err)
		return
	}
	fmt.Printf("  VALID: operator=%s can_write=%t\n", claims.Operator, claims.CanWrite)
}
