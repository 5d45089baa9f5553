package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/pkg/email"
)

func main() {
	godotenv.Load()
	cfg, _ := config.Load()
	emailService := email.NewEmailService(cfg)

	to := os.Getenv("TEST_EMAIL_TO")
	if to == "" {
		log.Fatal("Set TEST_EMAIL_TO to run the email smoke test")
	}

	// Send test email
	ctx := context.Background()
	testEmail := &email.Email{
		To:          []string{to},
		Subject:     "Test Email from Hospital Backend",
		HTMLContent: "<h1>Success!</h1><p>SMTP is working!</p>",
		Type:        "test",
	}

	if err := emailService.SendEmail(ctx, testEmail); err != nil {
		log.Fatal("Send failed:", err)
	}

	log.Println("✅ Email sent successfully!")
}
