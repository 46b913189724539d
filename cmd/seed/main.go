// seed inserts sample client records for local testing.
// Idempotent: a sample is skipped when a client with its email already exists.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crm-backend/internal/client/repository"
	"crm-backend/internal/client/service"
	"crm-backend/internal/config"
	"crm-backend/internal/db"
)

// sample is a create payload; Email is the idempotency key.
type sample struct {
	Email   string
	Payload string
}

var samples = []sample{
	{
		Email:   "maria.gonzalez@example.com",
		Payload: `{"first_name":"María","last_name":"González","email":"maria.gonzalez@example.com",
			"phone":"+34 600 123 456","company":"Iberia Foods","tags":["wholesale","vip"],
			"address":{"street":"Calle Mayor 1","city":"Madrid","postal_code":"28013","country":"ES"},
			"lead_status":"customer","contact_preferences":{"preferred_channel":"whatsapp","best_time":"morning"}}`,
	},
	{
		Email:   "jack.chen@example.com",
		Payload: `{"first_name":"Jack","last_name":"Chen","email":"jack.chen@example.com",
			"company":"Northwind Traders","tags":["trial"],"lead_status":"prospect",
			"newsletter_subscribed":false,"notes":"Asked for a demo next quarter."}`,
	},
	{
		Email:   "amara.okafor@example.com",
		Payload: `{"first_name":"Amara","last_name":"Okafor","email":"amara.okafor@example.com",
			"address":{"city":"Lagos","country":"NG"},
			"contact_preferences":{"preferred_channel":"email","allow_marketing":false,"best_time":"evening"}}`,
	},
	{
		Email:   "louis.martin@example.com",
		Payload: `{"first_name":"Louis","last_name":"Martin","email":"louis.martin@example.com",
			"phone":"+33 6 12 34 56 78","lead_status":"inactive","tags":[]}`,
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gateway, err := db.Open(ctx, cfg.DatabaseURL, cfg.ResolveDatabaseName())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer gateway.Close(context.Background())

	repo := repository.NewGatewayRepository(gateway)
	created, skipped, err := seed(ctx, repo, service.NewClientService(repo, nil))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: created %d clients, skipped %d existing", created, skipped)
}

// seed creates every sample whose email is not yet stored. Samples go through the service so they
// are validated exactly like API input.
func seed(ctx context.Context, repo repository.Repository, svc *service.ClientService) (created, skipped int, err error) {
	for _, s := range samples {
		if !json.Valid([]byte(s.Payload)) {
			return created, skipped, fmt.Errorf("sample %s: payload is not valid JSON", s.Email)
		}
		existing, err := repo.ListByEmail(ctx, s.Email)
		if err != nil {
			return created, skipped, fmt.Errorf("check %s: %w", s.Email, err)
		}
		if len(existing) > 0 {
			skipped++
			continue
		}
		c, err := svc.Create(ctx, []byte(s.Payload))
		if err != nil {
			return created, skipped, fmt.Errorf("create %s: %w", s.Email, err)
		}
		log.Printf("seed: created client %s (%s %s)", c.ID, c.FirstName, c.LastName)
		created++
	}
	return created, skipped, nil
}
