package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/db"
	ldomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
	lrepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/repository"
	sdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/domain"
	srepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/settings/repository"
	tdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
	trepo "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/repository"
	tsvc "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/service"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		fatalf("invalid DATABASE_URL: %v", err)
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		fatalf("pg pool: %v", err)
	}
	defer pgPool.Close()

	if err := db.Migrate(ctx, pgPool); err != nil {
		fatalf("schema migration: %v", err)
	}

	settingsRepo := srepo.New(pgPool)
	templates := tsvc.NewRegistry(trepo.New(pgPool))
	listings := lrepo.New(pgPool)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "recipient":
		fs := flag.NewFlagSet("recipient", flag.ExitOnError)
		email := fs.String("email", os.Getenv("EMAIL"), "recipient email")
		first := fs.String("first", envOr("FIRST_NAME", "Test"), "first name")
		last := fs.String("last", envOr("LAST_NAME", "Recipient"), "last name")
		rolesCSV := fs.String("roles", envOr("ROLES", "student"), "comma-separated roles (e.g. student,mentor)")
		_ = fs.Parse(os.Args[2:])

		if strings.TrimSpace(*email) == "" {
			fatalf("email is required")
		}
		id, err := ensureRecipient(ctx, pgPool, strings.TrimSpace(*email), *first, *last, splitCSV(*rolesCSV))
		if err != nil {
			fatalf("recipient create: %v", err)
		}
		printEnv(map[string]string{"RECIPIENT_ID": id.String(), "EMAIL": *email})

	case "templates":
		_ = flag.NewFlagSet("templates", flag.ExitOnError).Parse(os.Args[2:])
		defaults := []struct {
			name     string
			category tdomain.Category
			subject  string
		}{
			{"new_listing_announcement", tdomain.CategoryEventAnnouncement, "New opportunity posted"},
			{"mentorship_invite", tdomain.CategoryMentorshipInvite, "You have a mentorship invitation"},
			{"registration_confirmation", tdomain.CategoryRegistrationConfirmation, "Registration confirmed"},
			{"general_notice", tdomain.CategoryGeneral, "A note from the events team"},
		}
		out := map[string]string{}
		for _, d := range defaults {
			t, err := templates.GetOrCreate(ctx, d.name, d.category, d.subject)
			if err != nil {
				fatalf("template %s: %v", d.name, err)
			}
			out[strings.ToUpper(d.name)+"_ID"] = t.ID.String()
		}
		printEnv(out)

	case "listing":
		fs := flag.NewFlagSet("listing", flag.ExitOnError)
		title := fs.String("title", envOr("LISTING_TITLE", "Fall Career Fair"), "listing title")
		desc := fs.String("description", envOr("LISTING_DESCRIPTION", "Meet employers from across the state."), "listing description")
		location := fs.String("location", envOr("LISTING_LOCATION", "Memorial Student Center"), "listing location")
		startsIn := fs.Duration("starts-in", 72*time.Hour, "time until the listing starts")
		rolesCSV := fs.String("audience-roles", os.Getenv("AUDIENCE_ROLES"), "comma-separated audience roles (empty = everyone)")
		_ = fs.Parse(os.Args[2:])

		l := ldomain.Listing{
			ID:            uuid.New(),
			Title:         strings.TrimSpace(*title),
			Description:   strings.TrimSpace(*desc),
			Location:      strings.TrimSpace(*location),
			StartsAt:      time.Now().Add(*startsIn),
			EndsAt:        time.Now().Add(*startsIn + 3*time.Hour),
			AudienceRoles: splitCSV(*rolesCSV),
		}
		if err := listings.Create(ctx, l); err != nil {
			fatalf("listing create: %v", err)
		}
		printEnv(map[string]string{"LISTING_ID": l.ID.String()})

	case "email-smtp":
		fs := flag.NewFlagSet("email-smtp", flag.ExitOnError)
		host := fs.String("host", envOr("SMTP_HOST", "localhost"), "smtp host")
		port := fs.String("port", envOr("SMTP_PORT", "1025"), "smtp port")
		from := fs.String("from", envOr("SMTP_FROM", "no-reply@local.dev"), "from address")
		username := fs.String("username", os.Getenv("SMTP_USERNAME"), "smtp username")
		password := fs.String("password", os.Getenv("SMTP_PASSWORD"), "smtp password (secret)")
		_ = fs.Parse(os.Args[2:])

		pairs := []struct {
			key, val string
			secret   bool
		}{
			{sdomain.KeyEmailProvider, "smtp", false},
			{sdomain.KeySMTPHost, *host, false},
			{sdomain.KeySMTPPort, *port, false},
			{sdomain.KeySMTPFrom, *from, false},
			{sdomain.KeySMTPUsername, *username, false},
			{sdomain.KeySMTPPassword, *password, true},
		}
		for _, p := range pairs {
			if strings.TrimSpace(p.val) == "" {
				continue
			}
			if err := settingsRepo.Upsert(ctx, p.key, p.val, p.secret); err != nil {
				fatalf("upsert %s: %v", p.key, err)
			}
		}
		printEnv(map[string]string{"EMAIL_PROVIDER": "smtp"})

	case "default":
		fs := flag.NewFlagSet("default", flag.ExitOnError)
		count := fs.Int("recipients", 5, "number of sample recipients")
		_ = fs.Parse(os.Args[2:])

		if _, err := templates.GetOrCreate(ctx, "new_listing_announcement", tdomain.CategoryEventAnnouncement, "New opportunity posted"); err != nil {
			fatalf("seed templates: %v", err)
		}
		out := map[string]string{}
		roles := [][]string{{"student"}, {"student"}, {"mentor"}, {"student", "organizer"}, {"mentor", "organizer"}}
		for i := 0; i < *count; i++ {
			email := fmt.Sprintf("recipient%d@example.edu", i+1)
			id, err := ensureRecipient(ctx, pgPool, email, "Sample", fmt.Sprintf("Recipient%d", i+1), roles[i%len(roles)])
			if err != nil {
				fatalf("recipient %s: %v", email, err)
			}
			out[fmt.Sprintf("RECIPIENT_%d_ID", i+1)] = id.String()
		}
		printEnv(out)

	default:
		usage()
		os.Exit(2)
	}
}

func ensureRecipient(ctx context.Context, pool *pgxpool.Pool, email, first, last string, roles []string) (uuid.UUID, error) {
	id := uuid.New()
	err := pool.QueryRow(ctx,
		`INSERT INTO recipients (id, email, first_name, last_name, roles, is_active, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, '{}'), true, now())
		 ON CONFLICT (email) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, roles = EXCLUDED.roles
		 RETURNING id`,
		id, email, first, last, roles).Scan(&id)
	return id, err
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  seed recipient --email <email> [--first First] [--last Last] [--roles student,mentor]
  seed templates
  seed listing [--title <title>] [--starts-in 72h] [--audience-roles student]
  seed email-smtp [--host localhost] [--port 1025] [--from no-reply@local.dev]
  seed default [--recipients 5]

Environment fallbacks:
  EMAIL, FIRST_NAME, LAST_NAME, ROLES, LISTING_TITLE, LISTING_DESCRIPTION,
  LISTING_LOCATION, AUDIENCE_ROLES, SMTP_HOST, SMTP_PORT, SMTP_FROM,
  SMTP_USERNAME, SMTP_PASSWORD
`)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printEnv(kv map[string]string) {
	// KEY=VALUE lines so callers can tee into a .env file and source it.
	for k, v := range kv {
		fmt.Printf("%s=%s\n", k, v)
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}
