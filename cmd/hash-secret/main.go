package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-secret generates the bcrypt hash for OPERATOR_HASH. Run it
// once during deployment and put the output in the server environment.
func main() {
	fmt.Println("=== Generate Operator Secret Hash ===")

	fmt.Print("Enter Secret: ")
	byteSecret, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading secret")
		os.Exit(1)
	}
	secret := string(byteSecret)
	fmt.Println()
	if len(secret) < 8 {
		fmt.Println("Error: Secret must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm Secret: ")
	byteConfirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading secret")
		os.Exit(1)
	}
	fmt.Println()
	if secret != string(byteConfirm) {
		fmt.Println("Error: Secrets do not match")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nSet this in the server environment:")
	fmt.Printf("OPERATOR_HASH='%s'\n", string(hash))
}
