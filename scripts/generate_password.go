package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Generates a bcrypt hash for seeding staff accounts. Use the same cost
// as BCRYPT_COST in the server environment so seeded logins carry the
// same work factor as ones created through the API.
func main() {
	cost := flag.Int("cost", 12, "bcrypt cost factor")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: go run scripts/generate_password.go [-cost N] <password>")
	}
	plain := flag.Arg(0)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), *cost)
	if err != nil {
		log.Fatal("Error generating hash:", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(plain)); err != nil {
		log.Fatal("Hash verification failed:", err)
	}

	fmt.Printf("Password: %s\n", plain)
	fmt.Printf("Hash:     %s\n", hash)
	fmt.Println("✅ Verified. Use this hash when seeding staff accounts.")
}
