// Command report builds a ledger report for one user and writes it as an
// HTML file. It is an operator tool; the bot sends the same document in-chat.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/aruniyer/ledger-bot/internal/logger"
	"github.com/aruniyer/ledger-bot/internal/report"
	"github.com/aruniyer/ledger-bot/internal/store/postgres"
)

func main() {
	log := logger.New()

	var (
		externalID = flag.String("user", "", "external (chat) id of the user")
		startStr   = flag.String("start", "", "range start, YYYY-MM-DD (default: 30 days before end)")
		endStr     = flag.String("end", "", "range end, YYYY-MM-DD (default: today)")
		out        = flag.String("out", "expense_report.html", "output file")
		tz         = flag.String("tz", "Asia/Kolkata", "timezone for dates and the default range")
	)
	flag.Parse()

	if *externalID == "" {
		log.Fatal().Msg("--user is required")
	}

	_ = godotenv.Load()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatal().Err(err).Str("tz", *tz).Msg("Bad timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := postgres.New(ctx, databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer st.Close()

	user, err := st.FindUser(ctx, *externalID)
	if err != nil {
		log.Fatal().Err(err).Str("user", *externalID).Msg("Unknown user")
	}

	start, err := parseDate(*startStr, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad --start")
	}
	end, err := parseDate(*endStr, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad --end")
	}
	if end != nil {
		// Cover the whole end day; range bounds are inclusive.
		e := end.Add(24*time.Hour - time.Nanosecond)
		end = &e
	}

	data, err := report.NewBuilder(st, loc).Build(ctx, user.ID, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report")
	}
	doc, err := report.RenderHTML(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render report")
	}

	if err := os.WriteFile(*out, doc, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("Failed to write report")
	}
	log.Info().
		Str("path", *out).
		Str("start", data.Start.Format("2006-01-02")).
		Str("end", data.End.Format("2006-01-02")).
		Msg("Report written")
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
